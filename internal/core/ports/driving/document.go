package driving

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// DocumentService manages uploaded text documents.
type DocumentService interface {
	// Upload chunks, embeds and indexes a text document.
	Upload(ctx context.Context, filename string, content []byte) (*domain.Document, error)

	// List returns every uploaded document.
	List(ctx context.Context) ([]domain.Document, error)

	// Get returns a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Delete removes a document and every indexed record it owns.
	// It returns the number of records removed, or domain.DeleteCountUnknown.
	Delete(ctx context.Context, id string) (int, error)

	// Search returns the topK document fragments most similar to query.
	Search(ctx context.Context, query string, topK int) ([]domain.SearchHit, error)
}
