package driven

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// EmbeddingService maps text to a unit-length vector. Every vector from one
// service has the same width.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector width, or 0 until the first response for a
	// model the adapter does not know.
	Dimensions() int

	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// LLMService completes a prompt. Answers and code generation both go
// through it; retry policy belongs to the caller.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// GenerateOptions are the sampling knobs. Zero values leave the adapter's
// defaults in place.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	StopWords   []string

	// JSON asks for a single JSON object where the provider supports it.
	JSON bool
}

// AIConfigValidator checks provider settings against the live service
// before they are saved.
type AIConfigValidator interface {
	ValidateEmbedding(cfg *domain.EmbeddingSettings) error
	ValidateLLM(cfg *domain.LLMSettings) error
}
