// Package memory holds the registries in process memory. They stand in for
// the SQLite registry when its file cannot be opened, and service tests use
// them directly.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore keeps uploaded documents keyed by id. Values are copied in
// and out so callers cannot mutate stored rows.
type DocumentStore struct {
	mu   sync.RWMutex
	rows map[string]domain.Document
	now  func() time.Time
}

// NewDocumentStore returns an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{rows: map[string]domain.Document{}, now: time.Now}
}

// SaveDocument inserts or replaces doc, stamping CreatedAt when unset.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now().UTC()
	}
	s.mu.Lock()
	s.rows[doc.ID] = *doc
	s.mu.Unlock()
	return nil
}

func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	doc, ok := s.rows[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// DeleteDocument is a no-op for unknown ids.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.rows, id)
	s.mu.Unlock()
	return nil
}

// ListDocuments orders by upload time, newest first, then by id.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	docs := slices.Collect(maps.Values(s.rows))
	s.mu.RUnlock()

	slices.SortFunc(docs, func(a, b domain.Document) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return docs, nil
}
