package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/codeassist/internal/connectors"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// Upload limits used when DocumentConfig leaves them zero.
const (
	DefaultMaxUploadBytes = 10 * 1024 * 1024
	DefaultMaxDocChunks   = 500

	// documentOverfetch widens document searches, which share the index with
	// corpus records.
	documentOverfetch = 3
)

// acceptedUploadExtensions lists the file types the upload path can read.
var acceptedUploadExtensions = map[string]bool{".txt": true}

// DocumentConfig tunes a DocumentService.
type DocumentConfig struct {
	// UploadDir receives the raw uploads.
	UploadDir    string
	MaxFileBytes int64
	MaxChunks    int
	BatchSize    int
}

// DocumentService indexes uploaded documents into the shared vector index.
type DocumentService struct {
	store    driven.DocumentStore
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	config   DocumentConfig
}

// NewDocumentService creates a document service.
// The embedder may be nil, in which case Upload and Search return
// domain.ErrEmbeddingUnavailable.
func NewDocumentService(
	store driven.DocumentStore,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	cfg DocumentConfig,
) *DocumentService {
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxUploadBytes
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = DefaultMaxDocChunks
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &DocumentService{
		store:    store,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		config:   cfg,
	}
}

// Upload chunks, embeds and indexes a text document.
func (s *DocumentService) Upload(ctx context.Context, filename string, content []byte) (*domain.Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !acceptedUploadExtensions[ext] {
		return nil, fmt.Errorf("%w: %q, use .txt", domain.ErrUnsupportedType, ext)
	}
	if int64(len(content)) > s.config.MaxFileBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrTooLarge, len(content), s.config.MaxFileBytes)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	text, ok := connectors.DecodeText(content)
	if !ok {
		return nil, fmt.Errorf("%w: no extractable text found in document", domain.ErrInvalidInput)
	}
	text = strings.ReplaceAll(text, `\n`, "\n")

	logger.Section("Document Upload")
	docID := uuid.New().String()

	meta := map[string]any{
		domain.MetaDocID:    docID,
		domain.MetaFilename: filename,
		domain.MetaType:     domain.RecordTypeDocument,
	}
	chunks := s.chunker.Chunk(docID, text, meta)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no extractable text found in document", domain.ErrInvalidInput)
	}
	if len(chunks) > s.config.MaxChunks {
		return nil, fmt.Errorf("%w: document has %d chunks, limit is %d", domain.ErrTooLarge, len(chunks), s.config.MaxChunks)
	}

	storagePath, err := s.saveRaw(docID, filename, content)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(chunks); start += s.config.BatchSize {
		end := min(start+s.config.BatchSize, len(chunks))
		if err := embedAndAdd(ctx, s.embedder, s.index, chunks[start:end]); err != nil {
			s.rollback(docID, storagePath)
			return nil, fmt.Errorf("index %s: %w", filename, err)
		}
		logger.Debug("Indexed %d/%d chunks of %s", end, len(chunks), filename)
	}

	doc := &domain.Document{
		ID:          docID,
		Filename:    filename,
		StoragePath: storagePath,
		ChunkCount:  len(chunks),
		Size:        int64(len(content)),
		CreatedAt:   time.Now(),
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		s.rollback(docID, storagePath)
		return nil, fmt.Errorf("save document: %w", err)
	}

	logger.Info("Uploaded %s as %s (%d chunks)", filename, docID, len(chunks))
	return doc, nil
}

// saveRaw writes the upload under the upload directory. An empty UploadDir
// skips storage.
func (s *DocumentService) saveRaw(docID, filename string, content []byte) (string, error) {
	if s.config.UploadDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.config.UploadDir, 0o700); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	p := filepath.Join(s.config.UploadDir, docID+"_"+filename)
	if err := os.WriteFile(p, content, 0o600); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return p, nil
}

// rollback removes what a failed upload left behind.
func (s *DocumentService) rollback(docID, storagePath string) {
	ctx := context.Background()
	if _, err := s.index.DeleteByField(ctx, domain.MetaDocID, docID); err != nil {
		logger.Warn("Could not remove partial records of %s: %v", docID, err)
	}
	if storagePath != "" {
		_ = os.Remove(storagePath)
	}
}

// List returns every uploaded document.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx)
}

// Get returns a document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	return s.store.GetDocument(ctx, id)
}

// Delete removes a document's records, its stored file and its registry row.
// The stored file is removed best-effort; record and registry failures are
// returned.
func (s *DocumentService) Delete(ctx context.Context, id string) (int, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	removed, err := s.index.DeleteByField(ctx, domain.MetaDocID, doc.ID)
	if err != nil {
		return 0, fmt.Errorf("delete records of %s: %w", doc.ID, err)
	}

	if doc.StoragePath != "" {
		if err := os.Remove(doc.StoragePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Could not remove stored upload %s: %v", doc.StoragePath, err)
		}
	}

	if err := s.store.DeleteDocument(ctx, doc.ID); err != nil {
		return removed, fmt.Errorf("delete document %s: %w", doc.ID, err)
	}

	if removed == domain.DeleteCountUnknown {
		logger.Info("Deleted %s (record count unknown)", doc.ID)
	} else {
		logger.Info("Deleted %s (%d records)", doc.ID, removed)
	}
	return removed, nil
}

// Search returns the topK document fragments most similar to query.
func (s *DocumentService) Search(ctx context.Context, query string, topK int) ([]domain.SearchHit, error) {
	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}
	hits, err := search(ctx, s.embedder, s.index, query, topK*documentOverfetch)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SearchHit, 0, topK)
	for _, h := range hits {
		if h.MetaString(domain.MetaType) != domain.RecordTypeDocument {
			continue
		}
		out = append(out, h)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}
