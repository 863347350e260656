package cli

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

type mockCorpus struct {
	indexed    bool
	forced     bool
	lastQuery  string
	lastTopK   int
	searchErr  error
	watchCalls int
}

func (m *mockCorpus) Index(_ context.Context, force bool) error {
	m.indexed = true
	m.forced = force
	return nil
}

func (m *mockCorpus) Search(_ context.Context, query string, topK int) ([]domain.SearchHit, error) {
	m.lastQuery, m.lastTopK = query, topK
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return []domain.SearchHit{
		{
			ID:    "internal/app/main.go:0",
			Score: 0.912,
			Text:  "File: internal/app/main.go\n\nfunc main() {}",
			Metadata: map[string]any{
				domain.MetaPath:       "internal/app/main.go",
				domain.MetaChunkIndex: 0,
				domain.MetaType:       domain.RecordTypeCodebase,
			},
		},
	}, nil
}

func (m *mockCorpus) IsIndexed() bool { return m.indexed }

func (m *mockCorpus) Stats() domain.CorpusStats {
	return domain.CorpusStats{
		Source:   "/src/app",
		Files:    12,
		Skipped:  2,
		Chunks:   40,
		Duration: 1500 * time.Millisecond,
		Indexed:  m.indexed,
		Backend:  "sqlite",
	}
}

type mockDocuments struct {
	uploadedName    string
	uploadedContent string
	deleteCount     int
}

func (m *mockDocuments) Upload(_ context.Context, filename string, content []byte) (*domain.Document, error) {
	m.uploadedName, m.uploadedContent = filename, string(content)
	return &domain.Document{ID: "doc-1", Filename: filename, ChunkCount: 2}, nil
}

func (m *mockDocuments) List(_ context.Context) ([]domain.Document, error) {
	return []domain.Document{
		{ID: "doc-1", Filename: "notes.txt", ChunkCount: 2, Size: 2048, CreatedAt: time.Now()},
	}, nil
}

func (m *mockDocuments) Get(_ context.Context, id string) (*domain.Document, error) {
	if id != "doc-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.Document{
		ID:          "doc-1",
		Filename:    "notes.txt",
		StoragePath: "/data/uploads/doc-1_notes.txt",
		ChunkCount:  2,
		Size:        2048,
		CreatedAt:   time.Now().Add(-time.Hour),
	}, nil
}

func (m *mockDocuments) Delete(_ context.Context, id string) (int, error) {
	if id != "doc-1" {
		return 0, domain.ErrNotFound
	}
	return m.deleteCount, nil
}

func (m *mockDocuments) Search(_ context.Context, _ string, _ int) ([]domain.SearchHit, error) {
	return nil, nil
}

type mockQuery struct {
	lastScope domain.SearchScope
	lastTopK  int
}

func (m *mockQuery) Ask(_ context.Context, question string, scope domain.SearchScope, topK int) (*domain.Answer, error) {
	m.lastScope, m.lastTopK = scope, topK
	return &domain.Answer{
		Question: question,
		Answer:   "The entrypoint is main.go.",
		Sources: []domain.SearchHit{
			{ID: "main.go:0", Score: 0.8, Metadata: map[string]any{domain.MetaPath: "main.go", domain.MetaChunkIndex: 0}},
		},
	}, nil
}

type mockGeneration struct {
	err error
}

func (m *mockGeneration) Generate(_ context.Context, _ string) (*domain.GenerationResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.GenerationResult{
		Summary:     "Adds a health handler",
		Assumptions: []string{"fiber is available"},
		Files: []domain.FileChange{
			{Path: "health.go", Action: domain.FileActionCreate, Language: "go", Content: "package app"},
		},
	}, nil
}

type mockSettings struct {
	settings      domain.AppSettings
	set           map[string]string
	setErr        error
	validateCalls int
}

func newMockSettings() *mockSettings {
	return &mockSettings{settings: domain.DefaultAppSettings(), set: map[string]string{}}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettings) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettings) Keys() []string {
	return []string{"chunking.max_chars", "llm.model", "vector_index.backend"}
}

func (m *mockSettings) Defaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettings) PingEmbedding() error {
	m.validateCalls++
	return nil
}

func (m *mockSettings) PingLLM() error {
	m.validateCalls++
	return nil
}

// testServices is the set installed by setupTestServices.
type testServices struct {
	corpus     *mockCorpus
	documents  *mockDocuments
	query      *mockQuery
	generation *mockGeneration
	settings   *mockSettings
	closed     int
}

func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		corpus:     &mockCorpus{},
		documents:  &mockDocuments{deleteCount: 2},
		query:      &mockQuery{},
		generation: &mockGeneration{},
		settings:   newMockSettings(),
	}
	SetServices(&Services{
		Corpus:     ts.corpus,
		Document:   ts.documents,
		Query:      ts.query,
		Generation: ts.generation,
		Settings:   ts.settings,
		Close:      func() { ts.closed++ },
	})
	return ts, func() { SetServices(nil) }
}

// executeCommand runs the root command with args and resets flag state afterwards.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags() {
	verbose, configDir = false, ""
	indexForce = false
	searchLimit, searchJSON = 10, false
	askScope, askTopK, askJSON = string(domain.ScopeCodebase), 3, false
	generateJSON = false
	serveAddr, serveMCPAddr, serveWatch = "", "", false
	mcpAddr, versionShort = "", false
	stdin = strings.NewReader("")
}
