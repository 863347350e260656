package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService with letter-frequency
// vectors, so identical texts score 1 and unrelated texts score lower.
type mockEmbedder struct {
	mu       sync.Mutex
	embedErr error
	calls    int
	batches  []int
}

func (m *mockEmbedder) vector(text string) []float32 {
	v := make([]float32, 27)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		} else {
			v[26] += 0.01
		}
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.batches = append(m.batches, len(texts))
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 27 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockLLM implements driven.LLMService, replying from a queue.
type mockLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	opts      []driven.GenerateOptions
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	r := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return r, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockPrompts implements driven.PromptStore with fixed templates.
type mockPrompts struct {
	err error
}

func (m *mockPrompts) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	switch name {
	case driven.PromptCodeGen:
		return "CONTEXT:\n%s\nREQUEST: %s", nil
	case driven.PromptAnswer:
		return "If missing say '%[3]s'\n%[1]s\nQ: %[2]s", nil
	}
	return "", domain.ErrNotFound
}

func (m *mockPrompts) Reload() {}

// mockSource implements driven.CorpusSource over an in-memory file list.
type mockSource struct {
	name    string
	files   []domain.SourceFile
	skipped int
	err     error

	mu    sync.Mutex
	walks int
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Walk(ctx context.Context, fn func(domain.SourceFile) error) (int, error) {
	m.mu.Lock()
	m.walks++
	m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	for _, f := range m.files {
		if err := ctx.Err(); err != nil {
			return m.skipped, err
		}
		if err := fn(f); err != nil {
			return m.skipped, err
		}
	}
	return m.skipped, nil
}

func (m *mockSource) walkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.walks
}

// mockWatchSource adds a scripted change stream to mockSource.
type mockWatchSource struct {
	mockSource
	changes chan driven.FileChange
}

func (m *mockWatchSource) Watch(_ context.Context) (<-chan driven.FileChange, error) {
	return m.changes, nil
}

// mockCorpus implements driving.CorpusService for the generation tests.
type mockCorpus struct {
	hits     []domain.SearchHit
	err      error
	searches int
	lastTopK int
}

func (m *mockCorpus) Index(_ context.Context, _ bool) error { return nil }

func (m *mockCorpus) Search(_ context.Context, _ string, topK int) ([]domain.SearchHit, error) {
	m.searches++
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

func (m *mockCorpus) IsIndexed() bool           { return true }
func (m *mockCorpus) Stats() domain.CorpusStats { return domain.CorpusStats{Indexed: true} }

// mockConfigStore implements driven.ConfigStore over a map.
type mockConfigStore struct {
	values map[string]any
	setErr error
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.values[key].(bool)
	return b
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	switch v := m.values[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error  { return nil }
func (m *mockConfigStore) Load() error  { return nil }
func (m *mockConfigStore) Path() string { return "/mock/config.toml" }

// mockValidator implements driven.AIConfigValidator.
type mockValidator struct {
	embeddingErr error
	llmErr       error
	lastLLM      *domain.LLMSettings
}

func (m *mockValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error { return m.embeddingErr }

func (m *mockValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.lastLLM = cfg
	return m.llmErr
}

// failingIndex wraps a driven.VectorIndex and fails selected operations.
type failingIndex struct {
	driven.VectorIndex
	addErr    error
	deleteErr error
	deleteN   *int
}

func (f *failingIndex) AddMany(ctx context.Context, ids []string, vectors [][]float32, texts []string, metas []map[string]any) error {
	if f.addErr != nil {
		return f.addErr
	}
	return f.VectorIndex.AddMany(ctx, ids, vectors, texts, metas)
}

func (f *failingIndex) DeleteByField(ctx context.Context, field string, value any) (int, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	n, err := f.VectorIndex.DeleteByField(ctx, field, value)
	if f.deleteN != nil {
		return *f.deleteN, err
	}
	return n, err
}

// namedIndex reports a persistent backend name over an in-memory index.
type namedIndex struct {
	driven.VectorIndex
	name string
}

func (n *namedIndex) Name() string { return n.name }
