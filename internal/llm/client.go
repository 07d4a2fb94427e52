package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"phpclientgen/internal/logger"
)

// BaseClient carries what every provider client shares
type BaseClient struct {
	config *Config
	logger *logger.Logger
}

// NewBaseClient creates a new base LLM client
func NewBaseClient(config *Config, log *logger.Logger) *BaseClient {
	if log == nil {
		log = logger.Nop()
	}
	return &BaseClient{
		config: config,
		logger: log.WithComponent("llm").WithField("provider", config.Provider),
	}
}

// classify maps a provider failure onto ErrSafetyBlocked or ErrGenerationFailed.
// Context cancellation is passed through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrSafetyBlocked) || errors.Is(err, ErrGenerationFailed) {
		return err
	}
	if strings.Contains(strings.ToUpper(err.Error()), "SAFETY") {
		return fmt.Errorf("%w: %w", ErrSafetyBlocked, err)
	}
	return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
}

// finish logs the interaction and returns the classified error
func (c *BaseClient) finish(operation string, input interface{}, output string, err error) error {
	err = classify(err)
	if err != nil {
		c.logger.LogLLMInteraction(operation, input, nil, err)
		return err
	}
	c.logger.LogLLMInteraction(operation, input, map[string]interface{}{
		"model": c.config.Model,
		"bytes": len(output),
	}, nil)
	return nil
}

// emit forwards a non-empty chunk to the handler and the accumulator
func emit(sb *strings.Builder, onChunk ChunkHandler, chunk string) {
	if chunk == "" {
		return
	}
	sb.WriteString(chunk)
	if onChunk != nil {
		onChunk(chunk)
	}
}
