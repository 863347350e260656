package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

func TestAskCmd_Flags(t *testing.T) {
	scope := askCmd.Flags().Lookup("scope")
	require.NotNil(t, scope)
	assert.Equal(t, "codebase", scope.DefValue)

	topK := askCmd.Flags().Lookup("top-k")
	require.NotNil(t, topK)
	assert.Equal(t, "k", topK.Shorthand)
	assert.Equal(t, "3", topK.DefValue)
}

func TestAskCmd(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantScope domain.SearchScope
		wantTopK  int
	}{
		{"defaults", []string{"ask", "where is main?"}, domain.ScopeCodebase, 3},
		{"documents", []string{"ask", "--scope", "documents", "-k", "5", "what is in the notes?"}, domain.ScopeDocuments, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()

			out, err := executeCommand(tt.args...)

			require.NoError(t, err)
			assert.Equal(t, tt.wantScope, ts.query.lastScope)
			assert.Equal(t, tt.wantTopK, ts.query.lastTopK)
			assert.Contains(t, out, "The entrypoint is main.go.")
			assert.Contains(t, out, "Sources:")
			assert.Contains(t, out, "main.go #0 (0.800)")
		})
	}
}

func TestAskCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("ask", "--json", "q")
	require.NoError(t, err)

	var answer domain.Answer
	require.NoError(t, json.Unmarshal([]byte(out), &answer))
	assert.Equal(t, "q", answer.Question)
	assert.Len(t, answer.Sources, 1)
}

func TestAskCmd_InvalidScope(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("ask", "--scope", "web", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid scope "web"`)
}

func TestAskCmd_NoService(t *testing.T) {
	_, err := executeCommand("ask", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query service not configured")
}

func TestGenerateCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("generate", "add a health endpoint")

	require.NoError(t, err)
	assert.Contains(t, out, "Adds a health handler")
	assert.Contains(t, out, "  - fiber is available")
	assert.Contains(t, out, "create health.go (go)")
	assert.Contains(t, out, "package app")
}

func TestGenerateCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("generate", "--json", "add a health endpoint")
	require.NoError(t, err)

	var result domain.GenerationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Files, 1)
	assert.Equal(t, domain.FileActionCreate, result.Files[0].Action)
}

func TestGenerateCmd_Errors(t *testing.T) {
	malformed := &domain.MalformedOutputError{Reason: "no JSON object"}

	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"exhausted", &domain.GenerationError{Attempts: 3, Err: malformed}, "generation failed after 3 attempts"},
		{"backend", domain.ErrLLMUnavailable, "generation failed: LLM service unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()
			ts.generation.err = tt.err

			_, err := executeCommand("generate", "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, errors.Is(err, tt.err) || errors.As(err, &malformed))
		})
	}
}
