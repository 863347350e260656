// Package vectorindex provides the vector index used by the services.
//
// Index is a thin facade over one backend. It tries the configured persistent
// backend first and falls back to the exact in-memory backend, permanently,
// if that backend cannot be opened or its first write fails. Callers only
// ever see the driven.VectorIndex contract.
package vectorindex

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/vectorindex/memory"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Opener constructs a persistent backend.
type Opener func(ctx context.Context) (driven.VectorIndex, error)

// Index delegates to the selected backend.
type Index struct {
	mu        sync.RWMutex
	active    driven.VectorIndex
	preferred string
	dim       int

	// settled is set once a write has succeeded or the index has fallen back.
	settled  bool
	fellBack bool
}

// New opens the preferred backend with open. A nil open, or one that fails,
// leaves the index on the memory backend. dim seeds the memory backend.
func New(ctx context.Context, preferred string, open Opener, dim int) *Index {
	x := &Index{preferred: preferred, dim: dim}

	if open == nil {
		x.active = memory.New(dim)
		x.settled = true
		return x
	}

	backend, err := open(ctx)
	if err != nil {
		x.active = memory.New(dim)
		x.markFallback("open", err)
		return x
	}
	x.active = backend
	return x
}

// markFallback records a permanent switch to memory. Callers hold mu or own x exclusively.
func (x *Index) markFallback(op string, err error) {
	logger.Warn("%v; using in-memory vector index", &domain.IndexBackendError{Backend: x.preferred, Op: op, Err: err})
	x.fellBack = true
	x.settled = true
}

func (x *Index) current() driven.VectorIndex {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.active
}

// AddMany inserts records. The first write to a persistent backend is the
// last point at which the index may fall back to memory.
func (x *Index) AddMany(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]any) error {
	x.mu.RLock()
	settled, active := x.settled, x.active
	x.mu.RUnlock()
	if settled {
		return active.AddMany(ctx, ids, vectors, texts, metadatas)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.settled {
		return x.active.AddMany(ctx, ids, vectors, texts, metadatas)
	}

	err := x.active.AddMany(ctx, ids, vectors, texts, metadatas)
	switch {
	case err == nil:
		x.settled = true
		return nil
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrDimensionMismatch):
		return err
	}

	if cerr := x.active.Close(); cerr != nil {
		logger.Debug("closing %s vector index: %v", x.preferred, cerr)
	}
	x.active = memory.New(x.dim)
	x.markFallback("first write", err)
	return x.active.AddMany(ctx, ids, vectors, texts, metadatas)
}

// Search returns the topK records most similar to query.
func (x *Index) Search(ctx context.Context, query []float32, topK int) ([]domain.SearchHit, error) {
	return x.current().Search(ctx, query, topK)
}

// DeleteByField removes every record whose metadata[field] equals value.
func (x *Index) DeleteByField(ctx context.Context, field string, value any) (int, error) {
	return x.current().DeleteByField(ctx, field, value)
}

// Count returns the number of stored records.
func (x *Index) Count(ctx context.Context) (int, error) {
	return x.current().Count(ctx)
}

// Name returns the active backend name.
func (x *Index) Name() string {
	return x.current().Name()
}

// Backend returns the active backend name. It equals Preferred unless the
// index fell back to memory.
func (x *Index) Backend() string {
	return x.Name()
}

// Preferred returns the configured backend name.
func (x *Index) Preferred() string {
	return x.preferred
}

// FellBack reports whether the preferred backend was abandoned.
func (x *Index) FellBack() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.fellBack
}

// Close releases the active backend.
func (x *Index) Close() error {
	return x.current().Close()
}
