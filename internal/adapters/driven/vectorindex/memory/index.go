// Package memory provides the exact in-memory vector index.
// It is the fallback for every persistent backend and is never persisted.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/vectorindex/vecmath"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Name is the backend name reported by Index.Name.
const Name = "memory"

// Index keeps records in four parallel slices indexed by position.
// Search is a full dot-product scan; delete rebuilds all four slices.
type Index struct {
	mu        sync.RWMutex
	dim       int
	ids       []string
	vectors   [][]float32
	texts     []string
	metadatas []map[string]any
	pos       map[string]int
}

// New creates an empty index. A dim of zero is fixed by the first insert.
func New(dim int) *Index {
	return &Index{
		dim: dim,
		pos: make(map[string]int),
	}
}

// AddMany appends records, overwriting in place any id already stored.
func (m *Index) AddMany(_ context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dim, err := vecmath.ValidateBatch(ids, vectors, texts, metadatas, m.dim)
	if err != nil {
		return err
	}
	m.dim = dim

	for i, id := range ids {
		vec := vecmath.Normalize(vectors[i])
		meta := vecmath.CopyMetadata(metadatas[i])

		if p, ok := m.pos[id]; ok {
			m.vectors[p] = vec
			m.texts[p] = texts[i]
			m.metadatas[p] = meta
			continue
		}

		m.pos[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
		m.texts = append(m.texts, texts[i])
		m.metadatas = append(m.metadatas, meta)
	}
	return nil
}

// Search scores every stored vector against query and returns the topK best.
func (m *Index) Search(_ context.Context, query []float32, topK int) ([]domain.SearchHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.ids) == 0 || topK <= 0 {
		return []domain.SearchHit{}, nil
	}
	if err := vecmath.CheckQuery(query, m.dim); err != nil {
		return nil, err
	}

	q := vecmath.Normalize(query)
	candidates := make([]vecmath.Scored, len(m.vectors))
	for i, v := range m.vectors {
		candidates[i] = vecmath.Scored{Pos: i, Score: vecmath.Dot(v, q)}
	}

	top := vecmath.TopK(candidates, topK)
	hits := make([]domain.SearchHit, len(top))
	for i, c := range top {
		hits[i] = domain.SearchHit{
			ID:       m.ids[c.Pos],
			Score:    c.Score,
			Text:     m.texts[c.Pos],
			Metadata: vecmath.CopyMetadata(m.metadatas[c.Pos]),
		}
	}
	return hits, nil
}

// DeleteByField removes every record whose metadata[field] equals value and
// returns the exact number removed.
func (m *Index) DeleteByField(_ context.Context, field string, value any) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keep := 0
	ids := make([]string, 0, len(m.ids))
	vectors := make([][]float32, 0, len(m.vectors))
	texts := make([]string, 0, len(m.texts))
	metadatas := make([]map[string]any, 0, len(m.metadatas))
	pos := make(map[string]int, len(m.pos))

	for i, meta := range m.metadatas {
		if vecmath.Matches(meta, field, value) {
			continue
		}
		pos[m.ids[i]] = keep
		ids = append(ids, m.ids[i])
		vectors = append(vectors, m.vectors[i])
		texts = append(texts, m.texts[i])
		metadatas = append(metadatas, meta)
		keep++
	}

	removed := len(m.ids) - keep
	m.ids, m.vectors, m.texts, m.metadatas, m.pos = ids, vectors, texts, metadatas, pos
	return removed, nil
}

// Count returns the number of stored records.
func (m *Index) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids), nil
}

// Dimensions returns the fixed dimensionality, or zero before the first insert.
func (m *Index) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dim
}

// Name returns the backend name.
func (m *Index) Name() string {
	return Name
}

// Close is a no-op.
func (m *Index) Close() error {
	return nil
}
