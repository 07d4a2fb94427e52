package llm

import (
	"context"
	"fmt"

	"phpclientgen/internal/logger"
)

// NewClient creates a new LLM client based on the provider
func NewClient(ctx context.Context, config *Config, log *logger.Logger) (Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", config.Provider, ErrMissingAPIKey)
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, log)
	case ProviderOpenAI:
		return NewOpenAIClient(config, log), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}
