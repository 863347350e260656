package mcp

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// mockCorpusService is a mock implementation of driving.CorpusService.
type mockCorpusService struct {
	hits      []domain.SearchHit
	stats     domain.CorpusStats
	err       error
	lastQuery string
	lastTopK  int
}

func (m *mockCorpusService) Index(_ context.Context, _ bool) error { return m.err }
func (m *mockCorpusService) IsIndexed() bool                       { return m.stats.Indexed }
func (m *mockCorpusService) Stats() domain.CorpusStats             { return m.stats }

func (m *mockCorpusService) Search(_ context.Context, query string, topK int) ([]domain.SearchHit, error) {
	m.lastQuery = query
	m.lastTopK = topK
	return m.hits, m.err
}

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer    *domain.Answer
	err       error
	lastScope domain.SearchScope
}

func (m *mockQueryService) Ask(_ context.Context, _ string, scope domain.SearchScope, _ int) (*domain.Answer, error) {
	m.lastScope = scope
	return m.answer, m.err
}

// mockGenerationService is a mock implementation of driving.GenerationService.
type mockGenerationService struct {
	result *domain.GenerationResult
	err    error
}

func (m *mockGenerationService) Generate(_ context.Context, _ string) (*domain.GenerationResult, error) {
	return m.result, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	err       error
}

func (m *mockDocumentService) Upload(_ context.Context, _ string, _ []byte) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockDocumentService) Search(_ context.Context, _ string, _ int) ([]domain.SearchHit, error) {
	return nil, m.err
}
