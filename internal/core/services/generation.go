package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure GenerationOrchestrator implements the interface.
var _ driving.GenerationService = (*GenerationOrchestrator)(nil)

// RetryHint is appended to the instruction after each malformed response.
const RetryHint = " (Ensure valid JSON output format)"

// Generation defaults.
const (
	DefaultGenerationTopK        = 15
	DefaultGenerationMaxTokens   = 4096
	DefaultGenerationMaxAttempts = 3
)

// GenerationConfig tunes a GenerationOrchestrator. Zero values use the defaults.
type GenerationConfig struct {
	// SchemaDir holds *.sql, *.prisma and *.dbml files always sent as context.
	SchemaDir   string
	TopK        int
	MaxTokens   int
	MaxAttempts int
}

// GenerationOrchestrator retrieves context, prompts the LLM and validates
// its structured output with bounded retries.
type GenerationOrchestrator struct {
	corpus  driving.CorpusService
	llm     driven.LLMService
	prompts driven.PromptStore
	config  GenerationConfig
}

// NewGenerationOrchestrator creates a generation orchestrator.
// The llm may be nil, in which case Generate returns domain.ErrLLMUnavailable.
func NewGenerationOrchestrator(
	corpus driving.CorpusService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	cfg GenerationConfig,
) *GenerationOrchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultGenerationTopK
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultGenerationMaxTokens
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultGenerationMaxAttempts
	}
	return &GenerationOrchestrator{
		corpus:  corpus,
		llm:     llm,
		prompts: prompts,
		config:  cfg,
	}
}

// Generate produces validated file changes for instruction.
func (g *GenerationOrchestrator) Generate(ctx context.Context, instruction string) (*domain.GenerationResult, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, fmt.Errorf("%w: instruction is required", domain.ErrInvalidInput)
	}
	if g.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	logger.Section("Code Generation")

	contexts, err := g.gatherContext(ctx, instruction)
	if err != nil {
		return nil, err
	}
	logger.Debug("Generating with %d context blocks", len(contexts))

	template, err := g.prompts.Load(driven.PromptCodeGen)
	if err != nil {
		return nil, fmt.Errorf("load codegen prompt: %w", err)
	}
	numbered := numberContexts("Context", contexts)

	opts := driven.GenerateOptions{
		MaxTokens:   g.config.MaxTokens,
		Temperature: 0.1,
		TopP:        0.9,
		JSON:        true,
	}

	var lastErr error
	current := instruction
	for attempt := 1; attempt <= g.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := g.llm.Generate(ctx, fmt.Sprintf(template, numbered, current), opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &domain.GenerationBackendError{Model: g.llm.ModelName(), Err: err}
		}

		result, err := parseGeneration(raw)
		if err == nil {
			logger.Info("Generated %d file(s) in %d attempt(s)", len(result.Files), attempt)
			return result, nil
		}
		if !retryable(err) {
			return nil, err
		}

		lastErr = err
		logger.Warn("Attempt %d/%d produced unusable output: %v", attempt, g.config.MaxAttempts, err)
		current += RetryHint
	}

	return nil, &domain.GenerationError{Attempts: g.config.MaxAttempts, Err: lastErr}
}

// gatherContext retrieves corpus fragments and puts the schema block first.
func (g *GenerationOrchestrator) gatherContext(ctx context.Context, instruction string) ([]string, error) {
	var contexts []string

	schema, err := loadSchemaContext(g.config.SchemaDir)
	if err != nil {
		logger.Warn("Schema context unavailable: %v", err)
	}
	if schema != "" {
		contexts = append(contexts, schema)
	}

	if g.corpus == nil {
		return contexts, nil
	}
	hits, err := g.corpus.Search(ctx, instruction, g.config.TopK)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		contexts = append(contexts, h.Text)
	}
	return contexts, nil
}

func retryable(err error) bool {
	var malformed *domain.MalformedOutputError
	var schema *domain.SchemaError
	return errors.As(err, &malformed) || errors.As(err, &schema)
}

// numberContexts renders "{label} N:\n{text}" blocks separated by blank lines.
func numberContexts(label string, contexts []string) string {
	blocks := make([]string, len(contexts))
	for i, c := range contexts {
		blocks[i] = fmt.Sprintf("%s %d:\n%s", label, i+1, c)
	}
	return strings.Join(blocks, "\n\n")
}
