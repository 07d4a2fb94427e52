package llm

import (
	"context"
	"errors"
)

// Role identifies the author of a conversation turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of a conversation
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ChunkHandler receives streamed text as it arrives
type ChunkHandler func(chunk string)

// Client defines the interface for LLM interactions
type Client interface {
	// StreamCode sends a single prompt and streams the generated text
	StreamCode(ctx context.Context, prompt string, onChunk ChunkHandler) error

	// Converse continues a conversation under a system instruction and
	// returns the full model reply; onChunk may be nil
	Converse(ctx context.Context, system string, history []Message, onChunk ChunkHandler) (string, error)
}

var (
	// ErrMissingAPIKey is returned when no API key is configured for the provider
	ErrMissingAPIKey = errors.New("API key is not configured")

	// ErrSafetyBlocked is returned when the provider refuses output on safety grounds
	ErrSafetyBlocked = errors.New("failed to generate code due to safety settings, please adjust your query")

	// ErrGenerationFailed wraps every other provider failure
	ErrGenerationFailed = errors.New("failed to generate code: the AI model may be temporarily unavailable or the request was invalid")
)
