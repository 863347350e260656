package ai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// embedServer answers /api/embed with vectors of width dims.
func embedServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		vec := make([]float64, dims)
		for i := range vec {
			vec[i] = float64(i + 1)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float64{vec}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func closedURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return srv.URL
}

func TestConfigValidator_ValidateEmbedding(t *testing.T) {
	v := NewConfigValidator().WithTimeout(2 * time.Second)

	tests := []struct {
		name    string
		cfg     *domain.EmbeddingSettings
		wantErr error
	}{
		{"nil settings", nil, nil},
		{"unconfigured", &domain.EmbeddingSettings{}, nil},
		{
			name: "known model with matching width",
			cfg:  &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: embedServer(t, 384).URL, Model: "all-minilm"},
		},
		{
			name: "unknown model accepts any width",
			cfg:  &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: embedServer(t, 7).URL, Model: "local-code-embed"},
		},
		{
			name:    "known model with wrong width",
			cfg:     &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: embedServer(t, 8).URL, Model: "nomic-embed-text"},
			wantErr: domain.ErrDimensionMismatch,
		},
		{
			name:    "unreachable",
			cfg:     &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: closedURL(t), Model: "nomic-embed-text"},
			wantErr: domain.ErrEmbeddingUnavailable,
		},
		{
			name: "provider without embeddings counts as unconfigured",
			cfg:  &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, Model: "claude"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateEmbedding(tt.cfg)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfigValidator_ValidateLLM(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	down := closedURL(t)

	v := NewConfigValidator().WithTimeout(2 * time.Second)

	tests := []struct {
		name    string
		cfg     *domain.LLMSettings
		wantErr bool
	}{
		{"nil settings", nil, false},
		{"unconfigured", &domain.LLMSettings{}, false},
		{"reachable ollama", &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: healthy.URL}, false},
		{"unreachable ollama", &domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: down}, true},
		{"unreachable ollama, reachable tgi fallback", &domain.LLMSettings{
			Provider:    domain.AIProviderOllama,
			BaseURL:     down,
			FallbackURL: healthy.URL,
		}, false},
		{"reachable tgi", &domain.LLMSettings{Provider: domain.AIProviderTGI, BaseURL: healthy.URL}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateLLM(tt.cfg)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
		})
	}
}

func TestNewConfigValidator_Timeout(t *testing.T) {
	assert.Equal(t, DefaultProbeTimeout, NewConfigValidator().timeout)
	assert.Equal(t, time.Second, NewConfigValidator().WithTimeout(time.Second).timeout)
}
