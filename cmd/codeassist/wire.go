package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/ai"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/config/file"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/cli"
	"github.com/custodia-labs/codeassist/internal/connectors/filesystem"
	"github.com/custodia-labs/codeassist/internal/connectors/github"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/services"
	"github.com/custodia-labs/codeassist/internal/logger"
	"github.com/custodia-labs/codeassist/internal/postprocessors/chunker"
)

// githubPrefix marks a corpus root that names a GitHub repository.
const githubPrefix = "github:"

// bootstrap builds every service from the settings in configDir.
func bootstrap(ctx context.Context, configDir string) (*cli.Services, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config directory: %w", err)
		}
		configDir = dir
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	dataDir := settings.DataDir
	if dataDir == "" {
		dataDir = configDir
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	aiServices := ai.Build(*settings)
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}
	closers = append(closers, aiServices.Close)

	var embedder driven.EmbeddingService
	dim := 0
	if aiServices.Embedding != nil {
		embedder = aiServices.Embedding
		dim = embedder.Dimensions()
	}

	index, err := vectorindex.Open(ctx, settings.VectorIndex, dataDir, dim)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
	closers = append(closers, func() {
		if err := index.Close(); err != nil {
			logger.Warn("Closing vector index: %v", err)
		}
	})

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("opening registry: %w", err)
	}
	closers = append(closers, func() { _ = store.Close() })

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	source, err := corpusSource(ctx, settings, dataDir)
	if err != nil {
		closeAll()
		return nil, err
	}

	chunks := chunker.New(
		chunker.WithChunkSize(settings.Chunking.MaxChars),
		chunker.WithOverlap(settings.Chunking.OverlapChars),
	)

	corpus := services.NewCorpusIndexer(source, chunks, embedder, index)
	corpus.SetRunStore(store.CorpusRunStore())

	documents := services.NewDocumentService(store.DocumentStore(), chunks, embedder, index, services.DocumentConfig{
		UploadDir:    filepath.Join(dataDir, "uploads"),
		MaxFileBytes: settings.Upload.MaxFileBytes,
		MaxChunks:    settings.Upload.MaxChunks,
	})

	schemaDir := settings.Corpus.SchemaDir
	if schemaDir != "" && !filepath.IsAbs(schemaDir) && !isGitHubRoot(settings.Corpus.Root) {
		schemaDir = filepath.Join(settings.Corpus.Root, schemaDir)
	}

	generation := services.NewGenerationOrchestrator(corpus, aiServices.LLM, prompts, services.GenerationConfig{
		SchemaDir:   schemaDir,
		TopK:        settings.Retrieval.TopK,
		MaxTokens:   settings.Retrieval.MaxTokens,
		MaxAttempts: settings.Retrieval.MaxAttempts,
	})

	svc := &cli.Services{
		Corpus:     corpus,
		Document:   documents,
		Query:      services.NewQueryService(corpus, documents, aiServices.LLM, prompts),
		Generation: generation,
		Settings:   settingsService,
		Close:      closeAll,
	}
	if _, ok := source.(driven.WatchableSource); ok {
		svc.Watch = corpus.Watch
	}
	return svc, nil
}

// corpusSource returns a GitHub source for "github:owner/repo[@ref]" roots
// and a filesystem source otherwise.
func corpusSource(ctx context.Context, settings *domain.AppSettings, dataDir string) (driven.CorpusSource, error) {
	root := settings.Corpus.Root
	if !isGitHubRoot(root) {
		return filesystem.New(root, filesystem.WithExcludeDir(dataDir)), nil
	}

	cfg, err := github.ParseRepo(strings.TrimPrefix(root, githubPrefix))
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}
	client, err := github.NewClient(ctx, settings.Corpus.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}
	return github.New(cfg, client), nil
}

func isGitHubRoot(root string) bool {
	return strings.HasPrefix(root, githubPrefix) || strings.HasPrefix(root, "https://github.com/")
}
