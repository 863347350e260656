// Package ai builds the embedding and LLM adapters named in the settings and
// checks that they answer.
package ai

import (
	"fmt"

	ollamaembed "github.com/custodia-labs/codeassist/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/codeassist/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/codeassist/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/codeassist/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/codeassist/internal/adapters/driven/llm/openai"
	tgillm "github.com/custodia-labs/codeassist/internal/adapters/driven/llm/tgi"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

type (
	embeddingBuilder func(*domain.EmbeddingSettings) (driven.EmbeddingService, error)
	llmBuilder       func(*domain.LLMSettings) (driven.LLMService, error)
)

var embeddingBuilders = map[domain.AIProvider]embeddingBuilder{
	domain.AIProviderOllama: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		// Models missing from the table learn their width on first use.
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: domain.EmbeddingDimensions()[s.Model],
		}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return openaiembed.NewEmbeddingService(openaiembed.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
	},
}

var llmBuilders = map[domain.AIProvider]llmBuilder{
	domain.AIProviderOllama: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return ollamallm.NewLLMService(ollamallm.Config{BaseURL: s.BaseURL, Model: s.Model, Timeout: s.Timeout}), nil
	},
	domain.AIProviderTGI: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return tgi(s.BaseURL, s), nil
	},
	domain.AIProviderOpenAI: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return openaillm.NewLLMService(openaillm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model, Timeout: s.Timeout})
	},
	domain.AIProviderAnthropic: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return anthropicllm.NewLLMService(anthropicllm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model, Timeout: s.Timeout})
	},
}

func tgi(baseURL string, s *domain.LLMSettings) *tgillm.LLMService {
	return tgillm.NewLLMService(tgillm.Config{BaseURL: baseURL, Timeout: s.Timeout})
}

// Services holds whatever could be built from the settings. A nil field
// means that capability is off; Warnings says why.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
	Warnings  []string
}

// Close closes the services that were built.
func (s *Services) Close() {
	if s.Embedding != nil {
		_ = s.Embedding.Close()
	}
	if s.LLM != nil {
		_ = s.LLM.Close()
	}
}

// Build creates both services without contacting them. A failure turns into
// a warning so the caller can still run: search needs only the embedder, and
// without an LLM answers fall back to the retrieved contexts.
func Build(settings domain.AppSettings) *Services {
	out := &Services{}

	if svc, err := NewEmbedding(&settings.Embedding); err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%v: %v", domain.ErrEmbeddingUnavailable, err))
	} else {
		out.Embedding = svc
	}

	if svc, err := NewLLM(&settings.LLM); err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%v: %v", domain.ErrLLMUnavailable, err))
	} else {
		out.LLM = svc
	}
	return out
}

// NewEmbedding returns the embedder for s, or nil when s is not configured.
// A positive RequestsPerSecond puts a limiter in front of it.
func NewEmbedding(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if s == nil || !s.IsConfigured() {
		return nil, nil
	}
	build, ok := embeddingBuilders[s.Provider]
	if !ok {
		return nil, fmt.Errorf("%s does not support embeddings, use ollama or openai", s.Provider)
	}
	svc, err := build(s)
	if err != nil {
		return nil, err
	}
	if s.RequestsPerSecond > 0 {
		return NewRateLimitedEmbedding(svc, s.RequestsPerSecond), nil
	}
	return svc, nil
}

// NewLLM returns the model for s, or nil when s is not configured. With a
// FallbackURL every provider except TGI itself is paired with a TGI server
// that takes over when the primary fails.
func NewLLM(s *domain.LLMSettings) (driven.LLMService, error) {
	if s == nil || !s.IsConfigured() {
		return nil, nil
	}
	build, ok := llmBuilders[s.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
	primary, err := build(s)
	if err != nil {
		return nil, err
	}
	if s.FallbackURL == "" || s.Provider == domain.AIProviderTGI {
		return primary, nil
	}
	return NewFallbackLLM(primary, tgi(s.FallbackURL, s)), nil
}
