// Package sqlite provides a persistent vector index in a local SQLite file.
//
// Vectors are stored as little endian float32 blobs next to their text and a
// JSON metadata document. Search is an exact cosine scan performed in Go,
// which keeps results identical to the in-memory backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/codeassist/internal/adapters/driven/vectorindex/vecmath"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Name is the backend name reported by Index.Name.
const Name = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS vectors (
	id         TEXT PRIMARY KEY,
	dim        INTEGER NOT NULL,
	vector     BLOB NOT NULL,
	text       TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Index is a SQLite-backed vector index.
type Index struct {
	db   *sql.DB
	path string

	mu  sync.RWMutex
	dim int
}

// New opens or creates the vector database at path.
// A dim of zero is taken from stored records, or from the first insert.
func New(ctx context.Context, path string, dim int) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	idx := &Index{db: db, path: path, dim: dim}

	var stored int
	err = db.QueryRowContext(ctx, `SELECT dim FROM vectors LIMIT 1`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("reading dimensions: %w", err)
	case dim != 0 && stored != dim:
		db.Close()
		return nil, fmt.Errorf("%w: %s holds %d dimensions, want %d", domain.ErrDimensionMismatch, path, stored, dim)
	default:
		idx.dim = stored
	}

	return idx, nil
}

// Path returns the database file path.
func (s *Index) Path() string {
	return s.path
}

// AddMany upserts records in a single transaction.
func (s *Index) AddMany(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim, err := vecmath.ValidateBatch(ids, vectors, texts, metadatas, s.dim)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, dim, vector, text, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			dim = excluded.dim,
			vector = excluded.vector,
			text = excluded.text,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		metaJSON, err := json.Marshal(vecmath.CopyMetadata(metadatas[i]))
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", id, err)
		}
		blob := float32SliceToBytes(vecmath.Normalize(vectors[i]))
		if _, err := stmt.ExecContext(ctx, id, dim, blob, texts[i], string(metaJSON)); err != nil {
			return fmt.Errorf("inserting %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vectors: %w", err)
	}
	s.dim = dim
	return nil
}

// Search scans every stored vector and returns the topK most similar.
func (s *Index) Search(ctx context.Context, query []float32, topK int) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}
	if err := vecmath.CheckQuery(query, s.dim); err != nil {
		return nil, err
	}
	q := vecmath.Normalize(query)

	rows, err := s.db.QueryContext(ctx, `SELECT id, vector FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var (
		ids        []string
		candidates []vecmath.Scored
	)
	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		v := bytesToFloat32Slice(blob)
		if len(v) != len(q) {
			continue
		}
		candidates = append(candidates, vecmath.Scored{Pos: len(ids), Score: vecmath.Dot(v, q)})
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	top := vecmath.TopK(candidates, topK)
	hits := make([]domain.SearchHit, 0, len(top))
	for _, c := range top {
		hit := domain.SearchHit{ID: ids[c.Pos], Score: c.Score}
		if err := s.loadRecord(ctx, &hit); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *Index) loadRecord(ctx context.Context, hit *domain.SearchHit) error {
	var metaJSON string
	err := s.db.QueryRowContext(ctx, `SELECT text, metadata FROM vectors WHERE id = ?`, hit.ID).
		Scan(&hit.Text, &metaJSON)
	if err != nil {
		return fmt.Errorf("loading record %s: %w", hit.ID, err)
	}
	hit.Metadata = make(map[string]any)
	if err := json.Unmarshal([]byte(metaJSON), &hit.Metadata); err != nil {
		return fmt.Errorf("decoding metadata for %s: %w", hit.ID, err)
	}
	return nil
}

// DeleteByField removes records whose metadata[field] equals value.
func (s *Index) DeleteByField(ctx context.Context, field string, value any) (int, error) {
	if !vecmath.ValidField(field) {
		return 0, fmt.Errorf("%w: metadata field %q", domain.ErrInvalidInput, field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM vectors WHERE json_extract(metadata, ?) = ?`, "$."+field, value)
	if err != nil {
		return 0, fmt.Errorf("deleting by %s: %w", field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.DeleteCountUnknown, nil
	}
	return int(n), nil
}

// Count returns the number of stored records.
func (s *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// Name returns the backend name.
func (s *Index) Name() string {
	return Name
}

// Close closes the database connection.
func (s *Index) Close() error {
	return s.db.Close()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
