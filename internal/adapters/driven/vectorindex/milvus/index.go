// Package milvus provides a vector index stored in a Milvus collection.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/vectorindex/vecmath"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Name is the backend name reported by Index.Name.
const Name = "milvus"

// Field names of the collection.
const (
	FieldID       = "id"
	FieldText     = "text"
	FieldMetadata = "metadata"
	FieldVector   = "vector"
)

const (
	maxIDLength   = "512"
	maxTextLength = "65535"
)

// Index stores records in a single collection with an HNSW cosine index.
type Index struct {
	client     *milvusclient.Client
	collection string
	dim        int

	mu sync.Mutex
}

// New connects to the Milvus server at addr and ensures the collection exists
// and is loaded. Milvus fixes the vector width at creation, so dim must be set.
func New(ctx context.Context, addr, collection string, dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: milvus needs the embedding dimensions up front", domain.ErrInvalidInput)
	}
	if !vecmath.ValidField(collection) {
		return nil, fmt.Errorf("%w: collection name %q", domain.ErrInvalidInput, collection)
	}

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	idx := &Index{client: c, collection: collection, dim: dim}
	if err := idx.ensureCollection(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return idx, nil
}

// Schema returns the collection schema for the given vector width.
func Schema(collection string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: collection,
		Description:    "Indexed corpus and document chunks",
		Fields: []*entity.Field{
			{
				Name:       FieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": maxIDLength,
				},
			},
			{
				Name:     FieldText,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": maxTextLength,
				},
			},
			{
				Name:     FieldMetadata,
				DataType: entity.FieldTypeJSON,
			},
			{
				Name:     FieldVector,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
		},
	}
}

func (m *Index) ensureCollection(ctx context.Context) error {
	exists, err := m.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(m.collection))
	if err != nil {
		return fmt.Errorf("failed to check if collection exists: %w", err)
	}

	if !exists {
		createOpt := milvusclient.NewCreateCollectionOption(m.collection, Schema(m.collection, m.dim))
		if err := m.client.CreateCollection(ctx, createOpt); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", m.collection, err)
		}

		idx := index.NewHNSWIndex(entity.COSINE, 16, 200)
		task, err := m.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(m.collection, FieldVector, idx))
		if err != nil {
			return fmt.Errorf("failed to create index on vector field: %w", err)
		}
		if err := task.Await(ctx); err != nil {
			return fmt.Errorf("waiting for vector index: %w", err)
		}
	}

	loadTask, err := m.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(m.collection))
	if err != nil {
		return fmt.Errorf("failed to load collection %s into memory: %w", m.collection, err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("waiting for collection load: %w", err)
	}
	return nil
}

// AddMany upserts records; Milvus replaces rows that share a primary key.
func (m *Index) AddMany(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadatas []map[string]any) error {
	if _, err := vecmath.ValidateBatch(ids, vectors, texts, metadatas, m.dim); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	normalized := make([][]float32, len(vectors))
	metaBytes := make([][]byte, len(metadatas))
	for i := range ids {
		normalized[i] = vecmath.Normalize(vectors[i])
		b, err := json.Marshal(vecmath.CopyMetadata(metadatas[i]))
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", ids[i], err)
		}
		metaBytes[i] = b
	}

	opt := milvusclient.NewColumnBasedInsertOption(m.collection).
		WithVarcharColumn(FieldID, ids).
		WithVarcharColumn(FieldText, texts).
		WithColumns(column.NewColumnJSONBytes(FieldMetadata, metaBytes)).
		WithFloatVectorColumn(FieldVector, m.dim, normalized)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.client.Upsert(ctx, opt); err != nil {
		return fmt.Errorf("failed to upsert %d records: %w", len(ids), err)
	}
	return nil
}

// Search runs an ANN query against the HNSW index. Scores are cosine similarities.
func (m *Index) Search(ctx context.Context, query []float32, topK int) ([]domain.SearchHit, error) {
	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}
	if err := vecmath.CheckQuery(query, m.dim); err != nil {
		return nil, err
	}

	opt := milvusclient.NewSearchOption(m.collection, topK, []entity.Vector{entity.FloatVector(vecmath.Normalize(query))}).
		WithANNSField(FieldVector).
		WithOutputFields(FieldText, FieldMetadata).
		WithConsistencyLevel(entity.ClStrong)

	results, err := m.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", m.collection, err)
	}

	hits := []domain.SearchHit{}
	if len(results) == 0 {
		return hits, nil
	}
	rs := results[0]
	if rs.Err != nil {
		return nil, fmt.Errorf("search result: %w", rs.Err)
	}

	textCol := rs.GetColumn(FieldText)
	metaCol := rs.GetColumn(FieldMetadata)
	for i := 0; i < rs.ResultCount; i++ {
		id, err := rs.IDs.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("reading id %d: %w", i, err)
		}
		hit := domain.SearchHit{ID: id, Metadata: make(map[string]any)}
		if i < len(rs.Scores) {
			hit.Score = float64(rs.Scores[i])
		}
		if textCol != nil {
			hit.Text, _ = textCol.GetAsString(i)
		}
		if metaCol != nil {
			if raw, err := metaCol.Get(i); err == nil {
				if b, ok := raw.([]byte); ok && len(b) > 0 {
					if err := json.Unmarshal(b, &hit.Metadata); err != nil {
						return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
					}
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteByField removes records matching a JSON metadata expression.
// Milvus reports zero for deletes it has accepted but not yet counted, so a
// zero count is reported as domain.DeleteCountUnknown.
func (m *Index) DeleteByField(ctx context.Context, field string, value any) (int, error) {
	expr, err := FieldExpr(field, value)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	res, err := m.client.Delete(ctx, milvusclient.NewDeleteOption(m.collection).WithExpr(expr))
	if err != nil {
		return 0, fmt.Errorf("failed to delete by %s: %w", field, err)
	}
	if res.DeleteCount == 0 {
		return domain.DeleteCountUnknown, nil
	}
	return int(res.DeleteCount), nil
}

// FieldExpr builds the boolean expression metadata["field"] == value.
func FieldExpr(field string, value any) (string, error) {
	if !vecmath.ValidField(field) {
		return "", fmt.Errorf("%w: metadata field %q", domain.ErrInvalidInput, field)
	}
	literal, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: value for %s: %v", domain.ErrInvalidInput, field, err)
	}
	return fmt.Sprintf(`%s["%s"] == %s`, FieldMetadata, field, literal), nil
}

// Count returns the number of stored records.
func (m *Index) Count(ctx context.Context) (int, error) {
	opt := milvusclient.NewQueryOption(m.collection).
		WithOutputFields("count(*)").
		WithConsistencyLevel(entity.ClStrong)
	rs, err := m.client.Query(ctx, opt)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", m.collection, err)
	}
	col := rs.GetColumn("count(*)")
	if col == nil || col.Len() == 0 {
		return 0, nil
	}
	raw, err := col.Get(0)
	if err != nil {
		return 0, fmt.Errorf("reading count: %w", err)
	}
	n, ok := raw.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected count type %T", raw)
	}
	return int(n), nil
}

// Name returns the backend name.
func (m *Index) Name() string {
	return Name
}

// Close closes the client connection.
func (m *Index) Close() error {
	return m.client.Close(context.Background())
}
