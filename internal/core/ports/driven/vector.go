package driven

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// VectorIndex stores (id, vector, text, metadata) records and answers
// top-K cosine similarity queries.
//
// Every implementation honours the same contract:
//   - AddMany takes parallel slices of equal length; a duplicate id overwrites.
//   - All vectors in an index share one dimensionality.
//   - Search returns at most topK hits by descending score.
//   - DeleteByField returns the number removed, or domain.DeleteCountUnknown
//     when the backend cannot count. A failed delete is an error.
type VectorIndex interface {
	// AddMany inserts or overwrites records.
	AddMany(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]any) error

	// Search returns the topK most similar records to query.
	Search(ctx context.Context, query []float32, topK int) ([]domain.SearchHit, error)

	// DeleteByField removes every record whose metadata[field] equals value.
	DeleteByField(ctx context.Context, field string, value any) (int, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Name identifies the backend for logs and status output.
	Name() string

	// Close releases resources.
	Close() error
}
