package driven

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// DocumentStore persists the registry of uploaded documents.
// The chunks themselves live in the VectorIndex.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// DeleteDocument removes a document.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns every document, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}

// CorpusRunStore records completed corpus builds so that status output
// survives a restart.
type CorpusRunStore interface {
	// SaveRun records a finished build.
	SaveRun(ctx context.Context, stats domain.CorpusStats) error

	// LastRun returns the most recent build of source.
	// Returns domain.ErrNotFound if the source was never indexed.
	LastRun(ctx context.Context, source string) (*domain.CorpusStats, error)
}
