package httpapi

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

type mockCorpus struct {
	stats     domain.CorpusStats
	err       error
	lastForce bool
}

func (m *mockCorpus) Index(_ context.Context, force bool) error {
	m.lastForce = force
	if m.err == nil {
		m.stats.Indexed = true
	}
	return m.err
}

func (m *mockCorpus) Search(_ context.Context, _ string, _ int) ([]domain.SearchHit, error) {
	return nil, m.err
}

func (m *mockCorpus) IsIndexed() bool           { return m.stats.Indexed }
func (m *mockCorpus) Stats() domain.CorpusStats { return m.stats }

type mockQuery struct {
	answer    *domain.Answer
	err       error
	lastScope domain.SearchScope
	lastTopK  int
}

func (m *mockQuery) Ask(_ context.Context, question string, scope domain.SearchScope, topK int) (*domain.Answer, error) {
	m.lastScope = scope
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Question: question, Answer: domain.NotInContextAnswer}, nil
}

type mockGeneration struct {
	result *domain.GenerationResult
	err    error
}

func (m *mockGeneration) Generate(_ context.Context, _ string) (*domain.GenerationResult, error) {
	return m.result, m.err
}

type mockDocuments struct {
	docs         []domain.Document
	err          error
	removed      int
	lastFilename string
	lastContent  []byte
}

func (m *mockDocuments) Upload(_ context.Context, filename string, content []byte) (*domain.Document, error) {
	m.lastFilename = filename
	m.lastContent = content
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Document{ID: "doc-1", Filename: filename, ChunkCount: 2}, nil
}

func (m *mockDocuments) List(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockDocuments) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocuments) Delete(_ context.Context, _ string) (int, error) {
	return m.removed, m.err
}

func (m *mockDocuments) Search(_ context.Context, _ string, _ int) ([]domain.SearchHit, error) {
	return nil, m.err
}
