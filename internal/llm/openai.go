package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"phpclientgen/internal/logger"
)

// OpenAIClient implements Client using OpenAI's API
type OpenAIClient struct {
	*BaseClient
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(config *Config, log *logger.Logger) *OpenAIClient {
	cc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cc.BaseURL = config.BaseURL
	}
	return &OpenAIClient{
		BaseClient: NewBaseClient(config, log),
		client:     openai.NewClientWithConfig(cc),
	}
}

func (c *OpenAIClient) request(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	model := c.config.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(c.config.Temperature),
		TopP:        float32(c.config.TopP),
		MaxTokens:   c.config.MaxTokens,
		Messages:    messages,
		Stream:      true,
	}
}

func (c *OpenAIClient) stream(ctx context.Context, req openai.ChatCompletionRequest, onChunk ChunkHandler) (string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), fmt.Errorf("OpenAI API error: %w", err)
		}
		for _, choice := range resp.Choices {
			if choice.FinishReason == openai.FinishReasonContentFilter {
				return sb.String(), fmt.Errorf("%w: content filter", ErrSafetyBlocked)
			}
			emit(&sb, onChunk, choice.Delta.Content)
		}
	}
}

// StreamCode implements the Client interface
func (c *OpenAIClient) StreamCode(ctx context.Context, prompt string, onChunk ChunkHandler) error {
	req := c.request([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	out, err := c.stream(ctx, req, onChunk)
	return c.finish("StreamCode", map[string]interface{}{"prompt_bytes": len(prompt)}, out, err)
}

// Converse implements the Client interface
func (c *OpenAIClient) Converse(ctx context.Context, system string, history []Message, onChunk ChunkHandler) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}

	out, err := c.stream(ctx, c.request(messages), onChunk)
	if err := c.finish("Converse", map[string]interface{}{"turns": len(history)}, out, err); err != nil {
		return "", err
	}
	return out, nil
}
