package anthropic

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
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewLLMService(Config{APIKey: "key", BaseURL: server.URL + "/"})
	require.NoError(t, err)
	return s
}

func TestGenerate(t *testing.T) {
	var got messagesRequest
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"part one "},{"type":"tool_use"},{"type":"text","text":"part two"}],"stop_reason":"end_turn"}`))
	})

	out, err := s.Generate(context.Background(), "hi", driven.GenerateOptions{TopP: 0.9})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", out)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens, "max_tokens defaults when unset")
	assert.InDelta(t, 0.9, got.TopP, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestGenerate_JSONPrefill(t *testing.T) {
	var got messagesRequest
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"\"summary\":\"ok\",\"files\":[]}"}],"stop_reason":"end_turn"}`))
	})

	out, err := s.Generate(context.Background(), "generate", driven.GenerateOptions{JSON: true, MaxTokens: 4096})
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"ok","files":[]}`, out)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, message{Role: "assistant", Content: "{"}, got.Messages[1])
	assert.Equal(t, 4096, got.MaxTokens)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		header   map[string]string
		body     string
		contains string
		limited  bool
	}{
		{
			name:     "api error envelope",
			status:   http.StatusBadRequest,
			body:     `{"type":"error","error":{"type":"invalid_request_error","message":"prompt too long"}}`,
			contains: "prompt too long",
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			header:   map[string]string{"retry-after": "30"},
			body:     `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`,
			contains: "retry after 30s",
			limited:  true,
		},
		{
			name:    "overloaded",
			status:  529,
			body:    `{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`,
			limited: true,
		},
		{
			name:     "empty reply",
			status:   http.StatusOK,
			body:     `{"content":[],"stop_reason":"max_tokens"}`,
			contains: "empty reply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := s.Generate(context.Background(), "hi", driven.GenerateOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, tt.limited, errors.Is(err, domain.ErrRateLimited))
		})
	}
}

func TestPing(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		if r.Header.Get("x-api-key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, s.Ping(context.Background()))

	s.apiKey = "wrong"
	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)

	s, err := NewLLMService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, DefaultBaseURL, s.baseURL)
	assert.NoError(t, s.Close())
}
