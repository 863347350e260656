package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// Question answering limits.
const (
	DefaultQueryTopK   = 3
	MaxQueryTopK       = 20
	answerMaxTokens    = 1024
	llmUnavailablePref = "[LLM unavailable] Contexts found:\n\n"
)

// searcher is the retrieval half of the corpus and document services.
type searcher interface {
	Search(ctx context.Context, query string, topK int) ([]domain.SearchHit, error)
}

// QueryService answers questions from the codebase or uploaded documents.
type QueryService struct {
	corpus    searcher
	documents searcher
	llm       driven.LLMService
	prompts   driven.PromptStore
}

// NewQueryService creates a query service. Either searcher may be nil when
// its scope is not available. A nil llm returns the retrieved contexts as
// the answer.
func NewQueryService(
	corpus driving.CorpusService,
	documents driving.DocumentService,
	llm driven.LLMService,
	prompts driven.PromptStore,
) *QueryService {
	s := &QueryService{llm: llm, prompts: prompts}
	if corpus != nil {
		s.corpus = corpus
	}
	if documents != nil {
		s.documents = documents
	}
	return s
}

// Ask answers question from scope using up to topK fragments.
// topK <= 0 uses DefaultQueryTopK; larger values are capped at MaxQueryTopK.
func (s *QueryService) Ask(
	ctx context.Context,
	question string,
	scope domain.SearchScope,
	topK int,
) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	if scope == "" {
		scope = domain.ScopeCodebase
	}
	if !scope.IsValid() {
		return nil, fmt.Errorf("%w: unknown scope %q", domain.ErrInvalidInput, scope)
	}
	if topK <= 0 {
		topK = DefaultQueryTopK
	}
	topK = min(topK, MaxQueryTopK)

	source := s.corpus
	if scope == domain.ScopeDocuments {
		source = s.documents
	}
	if source == nil {
		return nil, fmt.Errorf("%w: %s scope is not available", domain.ErrInvalidInput, scope)
	}

	hits, err := source.Search(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	logger.Debug("Retrieved %d %s fragments", len(hits), scope)

	answer := &domain.Answer{Question: question, Sources: hits}
	if len(hits) == 0 {
		answer.Answer = domain.NotInContextAnswer
		return answer, nil
	}

	contexts := make([]string, len(hits))
	for i, h := range hits {
		contexts[i] = h.Text
	}

	if s.llm == nil {
		answer.Answer = llmUnavailablePref + strings.Join(contexts, "\n\n")
		return answer, nil
	}

	template, err := s.prompts.Load(driven.PromptAnswer)
	if err != nil {
		return nil, fmt.Errorf("load answer prompt: %w", err)
	}
	prompt := fmt.Sprintf(template, numberContexts("Excerpt", contexts), question, domain.NotInContextAnswer)

	text, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   answerMaxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.GenerationBackendError{Model: s.llm.ModelName(), Err: err}
	}

	answer.Answer = strings.TrimSpace(text)
	return answer, nil
}
