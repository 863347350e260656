// Package pgvector provides a vector index in PostgreSQL with the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/vectorindex/vecmath"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Name is the backend name reported by Index.Name.
const Name = "pgvector"

var tablePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Index stores records in a single table with a vector column and JSONB metadata.
type Index struct {
	db    *sql.DB
	table string

	mu  sync.RWMutex
	dim int
}

// New connects to dsn, enables the vector extension and creates table if missing.
// A dim of zero creates an unconstrained vector column.
func New(ctx context.Context, dsn, table string, dim int) (*Index, error) {
	if !tablePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: table name %q", domain.ErrInvalidInput, table)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	idx := &Index{db: db, table: table, dim: dim}
	if err := idx.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (p *Index) migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("enabling vector extension: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, createTableSQL(p.table, p.dim)); err != nil {
		return fmt.Errorf("creating table %s: %w", p.table, err)
	}
	return nil
}

func createTableSQL(table string, dim int) string {
	column := "vector"
	if dim > 0 {
		column = fmt.Sprintf("vector(%d)", dim)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id         TEXT PRIMARY KEY,
	embedding  %s NOT NULL,
	text       TEXT NOT NULL,
	metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, table, column)
}

// AddMany upserts records in a single transaction.
func (p *Index) AddMany(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	dim, err := vecmath.ValidateBatch(ids, vectors, texts, metadatas, p.dim)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, embedding, text, metadata, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			text = EXCLUDED.text,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`, p.table))
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		metaJSON, err := json.Marshal(vecmath.CopyMetadata(metadatas[i]))
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", id, err)
		}
		vec := pgvector.NewVector(vecmath.Normalize(vectors[i]))
		if _, err := stmt.ExecContext(ctx, id, vec, texts[i], string(metaJSON)); err != nil {
			return fmt.Errorf("upsert %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	p.dim = dim
	return nil
}

// Search orders records by cosine distance and converts it to similarity.
func (p *Index) Search(ctx context.Context, query []float32, topK int) ([]domain.SearchHit, error) {
	p.mu.RLock()
	dim := p.dim
	p.mu.RUnlock()

	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}
	if err := vecmath.CheckQuery(query, dim); err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, text, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, p.table), pgvector.NewVector(vecmath.Normalize(query)), topK)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	hits := []domain.SearchHit{}
	for rows.Next() {
		var (
			hit      domain.SearchHit
			metaJSON []byte
		)
		if err := rows.Scan(&hit.ID, &hit.Text, &metaJSON, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan similar: %w", err)
		}
		hit.Metadata = make(map[string]any)
		if err := json.Unmarshal(metaJSON, &hit.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", hit.ID, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar: %w", err)
	}
	return hits, nil
}

// DeleteByField removes records whose metadata[field] equals value.
// Values are compared in their text form, as ->> returns text.
func (p *Index) DeleteByField(ctx context.Context, field string, value any) (int, error) {
	if !vecmath.ValidField(field) {
		return 0, fmt.Errorf("%w: metadata field %q", domain.ErrInvalidInput, field)
	}

	res, err := p.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE metadata->>$1 = $2`, p.table), field, textValue(value))
	if err != nil {
		return 0, fmt.Errorf("delete by %s: %w", field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.DeleteCountUnknown, nil
	}
	return int(n), nil
}

// textValue renders value the way PostgreSQL's ->> operator renders JSON scalars.
func textValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// Count returns the number of stored records.
func (p *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, p.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Name returns the backend name.
func (p *Index) Name() string {
	return Name
}

// Close closes the connection pool.
func (p *Index) Close() error {
	return p.db.Close()
}
