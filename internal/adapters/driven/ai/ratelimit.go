package ai

import (
	"context"
	"math"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure RateLimitedEmbedding implements the interface.
var _ driven.EmbeddingService = (*RateLimitedEmbedding)(nil)

// RateLimitedEmbedding throttles calls to an embedding service.
// A batch counts as one request.
type RateLimitedEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// NewRateLimitedEmbedding allows rps requests per second with a burst of at
// least one.
func NewRateLimitedEmbedding(svc driven.EmbeddingService, rps float64) *RateLimitedEmbedding {
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedEmbedding{
		EmbeddingService: svc,
		limiter:          rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Embed waits for a token and then embeds text.
func (r *RateLimitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.EmbeddingService.Embed(ctx, text)
}

// EmbedBatch waits for a token and then embeds texts.
func (r *RateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.EmbeddingService.EmbedBatch(ctx, texts)
}
