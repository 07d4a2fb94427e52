package codegen

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"phpclientgen/internal/llm"
	"phpclientgen/internal/logger"
	"phpclientgen/internal/prompt"
	"phpclientgen/internal/types"
)

// ErrNoEndpoints is returned when there is nothing to generate
var ErrNoEndpoints = errors.New("please add at least one endpoint before generating code")

// Request is the client description to generate code for
type Request struct {
	Auth      types.AuthConfig
	Endpoints []types.Endpoint
	BaseURI   string
	Namespace string
	Tables    map[string][]string
}

// Result holds the cleaned code and what produced it
type Result struct {
	Code     string        `json:"-"`
	Prompt   string        `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Generator streams PHP client code out of an LLM
type Generator struct {
	client llm.Client
	logger *logger.Logger
}

// NewGenerator creates a new instance of Generator
func NewGenerator(client llm.Client, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{
		client: client,
		logger: log.WithComponent("codegen"),
	}
}

// Generate builds the prompt, streams raw chunks to onChunk and returns the cleaned code
func (g *Generator) Generate(ctx context.Context, req Request, onChunk llm.ChunkHandler) (*Result, error) {
	if len(req.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	p := prompt.Build(prompt.Params{
		Auth:      req.Auth,
		Endpoints: req.Endpoints,
		BaseURI:   req.BaseURI,
		Namespace: req.Namespace,
		Tables:    req.Tables,
	})

	g.logger.Event(logger.InfoLevel).
		Int("endpoints", len(req.Endpoints)).
		Int("prompt_bytes", len(p)).
		Msg("generating client")

	start := time.Now()
	var raw strings.Builder
	err := g.client.StreamCode(ctx, p, func(chunk string) {
		raw.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("code generation failed: %w", err)
	}

	res := &Result{
		Code:     CleanCode(raw.String()),
		Prompt:   p,
		Duration: time.Since(start),
	}
	g.logger.Event(logger.InfoLevel).
		Int("code_bytes", len(res.Code)).
		Dur("duration", res.Duration).
		Msg("client generated")
	return res, nil
}

var (
	leadingFence  = regexp.MustCompile("^```php\\s*|^php\\s*")
	trailingFence = regexp.MustCompile("```\\s*$")
)

// CleanCode strips markdown fences from model output and ensures the PHP open tag.
// Empty output stays empty.
func CleanCode(raw string) string {
	code := strings.TrimSpace(raw)
	code = leadingFence.ReplaceAllString(code, "")
	code = trailingFence.ReplaceAllString(code, "")
	code = strings.TrimSpace(code)
	if code != "" && !strings.HasPrefix(code, "<?php") {
		code = "<?php\n\n" + code
	}
	return code
}
