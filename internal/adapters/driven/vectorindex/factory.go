package vectorindex

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/vectorindex/milvus"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/vectorindex/pgvector"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/vectorindex/sqlite"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// DatabaseFile is the SQLite vector database name inside the data directory.
const DatabaseFile = "vectors.db"

// Open builds the facade for the configured backend. dim is the embedding
// width, or zero when unknown; settings.Dimensions takes precedence.
func Open(ctx context.Context, settings domain.VectorIndexSettings, dataDir string, dim int) (*Index, error) {
	if settings.Dimensions > 0 {
		dim = settings.Dimensions
	}

	opener, err := OpenerFor(settings, dataDir, dim)
	if err != nil {
		return nil, err
	}
	return New(ctx, string(settings.Backend), opener, dim), nil
}

// OpenerFor returns the opener of a persistent backend, or nil for memory.
func OpenerFor(settings domain.VectorIndexSettings, dataDir string, dim int) (Opener, error) {
	switch settings.Backend {
	case domain.VectorBackendMemory:
		return nil, nil
	case domain.VectorBackendSQLite:
		path := filepath.Join(dataDir, DatabaseFile)
		return func(ctx context.Context) (driven.VectorIndex, error) {
			return sqlite.New(ctx, path, dim)
		}, nil
	case domain.VectorBackendPgvector:
		if settings.DSN == "" {
			return nil, fmt.Errorf("%w: pgvector backend needs a database URL", domain.ErrInvalidInput)
		}
		return func(ctx context.Context) (driven.VectorIndex, error) {
			return pgvector.New(ctx, settings.DSN, settings.Collection, dim)
		}, nil
	case domain.VectorBackendMilvus:
		if settings.MilvusAddress == "" {
			return nil, fmt.Errorf("%w: milvus backend needs an address", domain.ErrInvalidInput)
		}
		return func(ctx context.Context) (driven.VectorIndex, error) {
			return milvus.New(ctx, settings.MilvusAddress, settings.Collection, dim)
		}, nil
	default:
		return nil, fmt.Errorf("%w: vector backend %q", domain.ErrUnsupportedType, settings.Backend)
	}
}
