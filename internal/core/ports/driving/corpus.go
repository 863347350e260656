package driving

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// CorpusService indexes a corpus and searches it.
type CorpusService interface {
	// Index builds the corpus index. It is a no-op when the corpus is already
	// indexed and force is false. Concurrent callers share a single build.
	Index(ctx context.Context, force bool) error

	// Search returns the topK fragments most similar to query, indexing first
	// if the corpus has not been indexed yet.
	Search(ctx context.Context, query string, topK int) ([]domain.SearchHit, error)

	// IsIndexed reports whether a build has completed.
	IsIndexed() bool

	// Stats describes the most recent build.
	Stats() domain.CorpusStats
}
