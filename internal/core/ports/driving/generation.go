package driving

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// GenerationService turns an instruction into validated file changes.
type GenerationService interface {
	// Generate retrieves context for instruction, asks the LLM for a structured
	// result and validates it. Failures after all attempts are *domain.GenerationError.
	Generate(ctx context.Context, instruction string) (*domain.GenerationResult, error)
}
