package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

func TestNewEmbeddingService(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewEmbeddingService(Config{})
		assert.Error(t, err)
	})

	t.Run("known model dimensions", func(t *testing.T) {
		s, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large"})
		require.NoError(t, err)
		assert.Equal(t, 3072, s.Dimensions())
		assert.Equal(t, "text-embedding-3-large", s.ModelName())
	})

	t.Run("shortened text-embedding-3 vectors", func(t *testing.T) {
		s, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-small", Dimensions: 512})
		require.NoError(t, err)
		assert.Equal(t, 512, s.Dimensions())
	})

	t.Run("ada ignores requested dimensions", func(t *testing.T) {
		s, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-ada-002", Dimensions: 512})
		require.NoError(t, err)
		assert.Equal(t, 1536, s.Dimensions())
		assert.Zero(t, s.shortened)
	})

	t.Run("unknown model learns width", func(t *testing.T) {
		s, err := NewEmbeddingService(Config{APIKey: "k", Model: "bge-code"})
		require.NoError(t, err)
		assert.Zero(t, s.Dimensions())
	})
}

func TestEmbedBatch_OrdersAndNormalises(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"first", " "}, req.Input, "empty inputs are padded")
		assert.Zero(t, req.Dimensions)

		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0,5]},
			{"index":0,"embedding":[3,4]}
		]}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL, Model: "local-embed"})
	require.NoError(t, err)

	vecs, err := s.EmbedBatch(context.Background(), []string{"first", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.InDelta(t, 0.6, vecs[0][0], 1e-6)
	assert.InDelta(t, 1.0, vecs[1][1], 1e-6)
	assert.Equal(t, 2, s.Dimensions())
}

func TestEmbedBatch_SplitsLargeBatches(t *testing.T) {
	var sizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sizes = append(sizes, len(req.Input))

		type item struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i := range data {
			data[i] = item{Index: i, Embedding: []float64{1, 0}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	texts := make([]string, MaxInputsPerRequest+3)
	for i := range texts {
		texts[i] = "chunk"
	}
	vecs, err := s.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vecs, len(texts))
	assert.Equal(t, []int{MaxInputsPerRequest, 3}, sizes)
}

func TestEmbedBatch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		wantErr string
		limited bool
	}{
		{"api error", `{"error":{"message":"bad key","type":"auth"}}`, http.StatusUnauthorized, "status 401: bad key", false},
		{"rate limited", `{"error":{"message":"tpm exceeded"}}`, http.StatusTooManyRequests, "tpm exceeded", true},
		{"missing input", `{"data":[{"index":0,"embedding":[1]}]}`, http.StatusOK, "no embedding returned for input 1", false},
		{"index out of range", `{"data":[{"index":5,"embedding":[1]}]}`, http.StatusOK, "out of range", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)
			_, err = s.EmbedBatch(context.Background(), []string{"a", "b"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.limited, errors.Is(err, domain.ErrRateLimited))
		})
	}
}
