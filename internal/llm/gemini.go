package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"phpclientgen/internal/logger"
)

// GeminiClient implements Client on the Google Gen AI SDK
type GeminiClient struct {
	*BaseClient
	client *genai.Client
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, log *logger.Logger) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  config.APIKey,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{
		BaseClient: NewBaseClient(config, log),
		client:     client,
	}, nil
}

// generateConfig translates Config into request parameters
func generateConfig(config *Config, system string) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(config.Temperature)),
		TopP:             genai.Ptr(float32(config.TopP)),
		TopK:             genai.Ptr(float32(config.TopK)),
		ResponseMIMEType: "text/plain",
	}
	if config.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(config.MaxTokens)
	}
	if config.UsesThinking() {
		gc.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(config.ThinkingBudget)),
		}
	}
	if system != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	return gc
}

// blockReason returns a non-empty description when a response was refused on safety grounds
func blockReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
		return string(pf.BlockReason)
	}
	for _, c := range resp.Candidates {
		switch c.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist, genai.FinishReasonSPII:
			return string(c.FinishReason)
		}
	}
	return ""
}

func (c *GeminiClient) stream(ctx context.Context, contents []*genai.Content, system string, onChunk ChunkHandler) (string, error) {
	var sb strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.config.Model, contents, generateConfig(c.config, system)) {
		if err != nil {
			return sb.String(), err
		}
		if reason := blockReason(resp); reason != "" {
			return sb.String(), fmt.Errorf("%w: %s", ErrSafetyBlocked, reason)
		}
		emit(&sb, onChunk, resp.Text())
	}
	return sb.String(), nil
}

// StreamCode implements the Client interface
func (c *GeminiClient) StreamCode(ctx context.Context, prompt string, onChunk ChunkHandler) error {
	out, err := c.stream(ctx, genai.Text(prompt), "", onChunk)
	return c.finish("StreamCode", map[string]interface{}{"prompt_bytes": len(prompt)}, out, err)
}

// Converse implements the Client interface
func (c *GeminiClient) Converse(ctx context.Context, system string, history []Message, onChunk ChunkHandler) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, genai.Role(role)))
	}

	out, err := c.stream(ctx, contents, system, onChunk)
	if err := c.finish("Converse", map[string]interface{}{"turns": len(history)}, out, err); err != nil {
		return "", err
	}
	return out, nil
}
