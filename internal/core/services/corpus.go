package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure CorpusIndexer implements the interface.
var _ driving.CorpusService = (*CorpusIndexer)(nil)

// DefaultBatchSize is the number of chunks embedded and inserted at once.
const DefaultBatchSize = 100

// CorpusIndexer builds the codebase index and searches it.
type CorpusIndexer struct {
	source    driven.CorpusSource
	chunker   driven.Chunker
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	runs      driven.CorpusRunStore
	batchSize int

	// buildMu serialises builds so concurrent first callers walk once.
	buildMu sync.Mutex

	mu    sync.RWMutex
	stats domain.CorpusStats
}

// NewCorpusIndexer creates a corpus indexer.
// The embedder may be nil, in which case indexing and search return
// domain.ErrEmbeddingUnavailable.
func NewCorpusIndexer(
	source driven.CorpusSource,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
) *CorpusIndexer {
	return &CorpusIndexer{
		source:    source,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		batchSize: DefaultBatchSize,
		stats:     domain.CorpusStats{Source: source.Name()},
	}
}

// SetRunStore records finished builds in runs and lets a persistent index
// be reused across restarts.
func (s *CorpusIndexer) SetRunStore(runs driven.CorpusRunStore) {
	s.runs = runs
}

// SetBatchSize overrides DefaultBatchSize.
func (s *CorpusIndexer) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// IsIndexed reports whether a build has completed.
func (s *CorpusIndexer) IsIndexed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats.Indexed
}

// Stats describes the most recent build.
func (s *CorpusIndexer) Stats() domain.CorpusStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Index walks the corpus source and indexes every file. It is a no-op when
// the corpus is already indexed and force is false. A caller arriving while
// a build runs waits for it.
func (s *CorpusIndexer) Index(ctx context.Context, force bool) error {
	if !force && s.IsIndexed() {
		return nil
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	if !force && s.IsIndexed() {
		return nil
	}
	if s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	if !force && s.restore(ctx) {
		return nil
	}

	return s.build(ctx)
}

// restore marks the corpus indexed when a persistent index already holds a
// build of the same source.
func (s *CorpusIndexer) restore(ctx context.Context) bool {
	if s.runs == nil || s.index.Name() == string(domain.VectorBackendMemory) {
		return false
	}

	last, err := s.runs.LastRun(ctx, s.source.Name())
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Corpus run lookup failed: %v", err)
		}
		return false
	}
	if last.Backend != s.index.Name() {
		return false
	}
	if n, err := s.index.Count(ctx); err != nil || n == 0 {
		return false
	}

	logger.Info("Reusing %s index of %s built %s", last.Backend, last.Source, last.FinishedAt.Format(time.RFC3339))
	last.Indexed = true
	s.setStats(*last)
	return true
}

func (s *CorpusIndexer) build(ctx context.Context) error {
	logger.Section("Corpus Indexing")
	logger.Info("Indexing %s", s.source.Name())
	start := time.Now()

	// The purge below invalidates the previous build until this one completes.
	s.setStats(domain.CorpusStats{Source: s.source.Name()})

	if n, err := s.index.DeleteByField(ctx, domain.MetaType, domain.RecordTypeCodebase); err != nil {
		logger.Warn("Could not clear previous corpus records: %v", err)
	} else if n != 0 {
		logger.Debug("Cleared %d previous corpus records", n)
	}

	var (
		pending []domain.Chunk
		files   int
		chunks  int
	)
	flush := func(batch []domain.Chunk) error {
		if err := s.addChunks(ctx, batch); err != nil {
			return err
		}
		chunks += len(batch)
		logger.Debug("Indexed %d chunks", chunks)
		return nil
	}

	skipped, err := s.source.Walk(ctx, func(f domain.SourceFile) error {
		files++
		pending = append(pending, s.chunkFile(f)...)
		for len(pending) >= s.batchSize {
			if err := flush(pending[:s.batchSize]); err != nil {
				return err
			}
			pending = pending[s.batchSize:]
		}
		return nil
	})
	if err == nil && len(pending) > 0 {
		err = flush(pending)
	}
	if err != nil {
		return fmt.Errorf("index %s: %w", s.source.Name(), err)
	}

	stats := domain.CorpusStats{
		Source:     s.source.Name(),
		Files:      files,
		Skipped:    skipped,
		Chunks:     chunks,
		Duration:   time.Since(start),
		Indexed:    true,
		Backend:    s.index.Name(),
		FinishedAt: time.Now(),
	}
	s.setStats(stats)

	if s.runs != nil {
		if err := s.runs.SaveRun(ctx, stats); err != nil {
			logger.Warn("Could not record corpus run: %v", err)
		}
	}

	logger.Info("Corpus indexing complete: %d files, %d chunks, %d skipped in %s",
		files, chunks, skipped, stats.Duration.Round(time.Millisecond))
	return nil
}

// chunkFile prefixes the file header and splits the file into chunks.
func (s *CorpusIndexer) chunkFile(f domain.SourceFile) []domain.Chunk {
	meta := map[string]any{
		domain.MetaPath: f.RelPath,
		domain.MetaType: domain.RecordTypeCodebase,
	}
	return s.chunker.Chunk(f.RelPath, domain.FileHeader(f.RelPath)+f.Content, meta)
}

// addChunks embeds a batch and inserts it into the index.
func (s *CorpusIndexer) addChunks(ctx context.Context, batch []domain.Chunk) error {
	return embedAndAdd(ctx, s.embedder, s.index, batch)
}

// Search returns the topK fragments most similar to query, building the
// index first if needed.
func (s *CorpusIndexer) Search(ctx context.Context, query string, topK int) ([]domain.SearchHit, error) {
	if err := s.Index(ctx, false); err != nil {
		return nil, &domain.RetrievalError{Query: query, Err: err}
	}
	return search(ctx, s.embedder, s.index, query, topK)
}

// IndexFile replaces the records of one file.
func (s *CorpusIndexer) IndexFile(ctx context.Context, f domain.SourceFile) (int, error) {
	if s.embedder == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}
	if _, err := s.RemoveFile(ctx, f.RelPath); err != nil {
		return 0, err
	}

	chunks := s.chunkFile(f)
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		if err := s.addChunks(ctx, chunks[start:end]); err != nil {
			return start, fmt.Errorf("index %s: %w", f.RelPath, err)
		}
	}

	s.mu.Lock()
	s.stats.Chunks += len(chunks)
	s.mu.Unlock()
	return len(chunks), nil
}

// RemoveFile deletes every record of the file at relPath.
func (s *CorpusIndexer) RemoveFile(ctx context.Context, relPath string) (int, error) {
	n, err := s.index.DeleteByField(ctx, domain.MetaPath, relPath)
	if err != nil {
		return 0, fmt.Errorf("remove %s: %w", relPath, err)
	}
	if n > 0 {
		s.mu.Lock()
		s.stats.Chunks = max(s.stats.Chunks-n, 0)
		s.mu.Unlock()
	}
	return n, nil
}

// Watch applies changes reported by the source until ctx is cancelled.
// It returns domain.ErrNotImplemented when the source cannot be watched.
func (s *CorpusIndexer) Watch(ctx context.Context) error {
	watchable, ok := s.source.(driven.WatchableSource)
	if !ok {
		return fmt.Errorf("watch %s: %w", s.source.Name(), domain.ErrNotImplemented)
	}

	changes, err := watchable.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.source.Name(), err)
	}
	logger.Info("Watching %s for changes", s.source.Name())

	for change := range changes {
		s.buildMu.Lock()
		err := s.apply(ctx, change)
		s.buildMu.Unlock()
		if err != nil {
			logger.Warn("Could not apply change to %s: %v", change.File.RelPath, err)
		}
	}
	return ctx.Err()
}

func (s *CorpusIndexer) apply(ctx context.Context, change driven.FileChange) error {
	switch change.Kind {
	case driven.ChangeRemove:
		n, err := s.RemoveFile(ctx, change.File.RelPath)
		if err == nil {
			logger.Debug("Removed %s (%d chunks)", change.File.RelPath, n)
		}
		return err
	default:
		n, err := s.IndexFile(ctx, change.File)
		if err == nil {
			logger.Debug("Re-indexed %s (%d chunks)", change.File.RelPath, n)
		}
		return err
	}
}

func (s *CorpusIndexer) setStats(stats domain.CorpusStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
}

// embedAndAdd embeds the text of each chunk and inserts the batch.
func embedAndAdd(ctx context.Context, embedder driven.EmbeddingService, index driven.VectorIndex, batch []domain.Chunk) error {
	texts := make([]string, len(batch))
	ids := make([]string, len(batch))
	metas := make([]map[string]any, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
		ids[i] = c.ID
		metas[i] = c.Metadata
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed batch: got %d vectors for %d chunks", len(vectors), len(batch))
	}
	if err := index.AddMany(ctx, ids, vectors, texts, metas); err != nil {
		return fmt.Errorf("add to %s index: %w", index.Name(), err)
	}
	return nil
}

// search embeds query and returns the topK nearest records. Failures are
// reported as *domain.RetrievalError.
func search(ctx context.Context, embedder driven.EmbeddingService, index driven.VectorIndex, query string, topK int) ([]domain.SearchHit, error) {
	if embedder == nil {
		return nil, &domain.RetrievalError{Query: query, Err: domain.ErrEmbeddingUnavailable}
	}
	query = strings.TrimSpace(query)
	if query == "" || topK <= 0 {
		return []domain.SearchHit{}, nil
	}

	vector, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, &domain.RetrievalError{Query: query, Err: fmt.Errorf("embed query: %w", err)}
	}
	hits, err := index.Search(ctx, vector, topK)
	if err != nil {
		return nil, &domain.RetrievalError{Query: query, Err: fmt.Errorf("search %s index: %w", index.Name(), err)}
	}
	return hits, nil
}
