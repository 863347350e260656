package ai

import (
	"context"
	"fmt"

	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure FallbackLLM implements the interface.
var _ driven.LLMService = (*FallbackLLM)(nil)

// FallbackLLM tries a primary LLM and, when it fails, a secondary one.
// Every call starts with the primary again.
type FallbackLLM struct {
	primary   driven.LLMService
	secondary driven.LLMService
}

// NewFallbackLLM wraps primary with secondary as its fallback.
func NewFallbackLLM(primary, secondary driven.LLMService) *FallbackLLM {
	return &FallbackLLM{primary: primary, secondary: secondary}
}

// Generate calls the primary, then the secondary. When both fail the two
// failures are reported together; the secondary's error is the wrapped one.
func (f *FallbackLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	out, err := f.primary.Generate(ctx, prompt, opts)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	logger.Warn("%s failed (%v), trying %s", f.primary.ModelName(), err, f.secondary.ModelName())

	out, fbErr := f.secondary.Generate(ctx, prompt, opts)
	if fbErr != nil {
		return "", fmt.Errorf("%s: %v; fallback %s: %w", f.primary.ModelName(), err, f.secondary.ModelName(), fbErr)
	}
	return out, nil
}

// ModelName returns the primary model name.
func (f *FallbackLLM) ModelName() string {
	return f.primary.ModelName()
}

// Ping succeeds when either service is reachable.
func (f *FallbackLLM) Ping(ctx context.Context) error {
	err := f.primary.Ping(ctx)
	if err == nil {
		return nil
	}
	if fbErr := f.secondary.Ping(ctx); fbErr != nil {
		return fmt.Errorf("%w; fallback: %v", err, fbErr)
	}
	return nil
}

// Close closes both services.
func (f *FallbackLLM) Close() error {
	err := f.primary.Close()
	if fbErr := f.secondary.Close(); err == nil {
		err = fbErr
	}
	return err
}
