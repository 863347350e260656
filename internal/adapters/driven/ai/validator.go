package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// DefaultProbeTimeout bounds each validation round trip.
const DefaultProbeTimeout = 5 * time.Second

// probeText is embedded to learn the width a model actually returns.
const probeText = "func main() {}"

// ConfigValidator checks provider settings against the live services before
// they are written to the config store.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator with DefaultProbeTimeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: DefaultProbeTimeout}
}

// WithTimeout returns a copy of v that waits at most d per probe.
func (v *ConfigValidator) WithTimeout(d time.Duration) *ConfigValidator {
	return &ConfigValidator{timeout: d}
}

// ValidateEmbedding embeds a probe string with the configured model. A model
// whose known width differs from the returned vector fails with
// domain.ErrDimensionMismatch, since its vectors could not share an index with
// the ones already stored. Unconfigured settings pass.
func (v *ConfigValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	if cfg == nil || !cfg.IsConfigured() {
		return nil
	}

	svc, err := NewEmbedding(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	vec, err := svc.Embed(ctx, probeText)
	if err != nil {
		return fmt.Errorf("%w: %s/%s did not answer: %w",
			domain.ErrEmbeddingUnavailable, cfg.Provider, cfg.Model, err)
	}
	if want := domain.EmbeddingDimensions()[cfg.Model]; want > 0 && len(vec) != want {
		return fmt.Errorf("%w: %s returned %d dimensions, expected %d",
			domain.ErrDimensionMismatch, cfg.Model, len(vec), want)
	}
	return nil
}

// ValidateLLM pings the configured LLM. With a fallback configured the check
// passes when either endpoint answers. Unconfigured settings pass.
func (v *ConfigValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	if cfg == nil || !cfg.IsConfigured() {
		return nil
	}

	svc, err := NewLLM(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrLLMUnavailable, svc.ModelName(), err)
	}
	return nil
}
