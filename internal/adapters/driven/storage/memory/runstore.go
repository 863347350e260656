package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure CorpusRunStore implements the interface.
var _ driven.CorpusRunStore = (*CorpusRunStore)(nil)

// CorpusRunStore keeps the latest build per source.
type CorpusRunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.CorpusStats
}

// NewCorpusRunStore creates a new in-memory corpus run store.
func NewCorpusRunStore() *CorpusRunStore {
	return &CorpusRunStore{runs: make(map[string]domain.CorpusStats)}
}

// SaveRun records a finished build.
func (s *CorpusRunStore) SaveRun(_ context.Context, stats domain.CorpusStats) error {
	if stats.FinishedAt.IsZero() {
		stats.FinishedAt = time.Now().UTC()
	}
	stats.Indexed = true

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[stats.Source] = stats
	return nil
}

// LastRun returns the most recent build of source.
func (s *CorpusRunStore) LastRun(_ context.Context, source string) (*domain.CorpusStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.runs[source]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &stats, nil
}
