package tgi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

func TestGenerate(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"generated_text":"SELECT 1;"}`))
	}))
	defer server.Close()

	s := NewLLMService(Config{BaseURL: server.URL})
	out, err := s.Generate(context.Background(), "write sql", driven.GenerateOptions{MaxTokens: 512, Temperature: 0.1, TopP: 0.9})
	require.NoError(t, err)

	assert.Equal(t, "SELECT 1;", out)
	assert.Equal(t, "write sql", got.Inputs)
	assert.Equal(t, 512, got.Parameters.MaxNewTokens)
	assert.InDelta(t, 0.9, got.Parameters.TopP, 1e-9)
}

func TestGenerate_ArrayResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"generated_text":"ok"}]`))
	}))
	defer server.Close()

	out, err := NewLLMService(Config{BaseURL: server.URL}).Generate(context.Background(), "p", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestGenerate_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"Input validation error","error_type":"validation"}`))
	}))
	defer server.Close()

	_, err := NewLLMService(Config{BaseURL: server.URL}).Generate(context.Background(), "p", driven.GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
	assert.Contains(t, err.Error(), "Input validation error")
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	s := NewLLMService(Config{BaseURL: server.URL})
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, DefaultModel, s.ModelName())
}
