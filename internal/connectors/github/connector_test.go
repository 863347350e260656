package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/logger"
)

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int    `json:"size"`
}

// fakeGitHub serves the three endpoints a Source uses.
type fakeGitHub struct {
	defaultBranch string
	entries       []treeEntry
	blobs         map[string]string
	failBlobs     map[string]int
	treeRefs      []string
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"name": "hello", "default_branch": f.defaultBranch})
	})
	mux.HandleFunc("/repos/octo/hello/git/trees/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		f.treeRefs = append(f.treeRefs, strings.TrimPrefix(r.URL.Path, "/repos/octo/hello/git/trees/"))
		writeJSON(t, w, map[string]any{"sha": "tree", "truncated": false, "tree": f.entries})
	})
	mux.HandleFunc("/repos/octo/hello/git/blobs/", func(w http.ResponseWriter, r *http.Request) {
		sha := strings.TrimPrefix(r.URL.Path, "/repos/octo/hello/git/blobs/")
		if status, ok := f.failBlobs[sha]; ok {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"message":"boom"}`)
			return
		}
		content, ok := f.blobs[sha]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"Not Found"}`)
			return
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(content))
		// GitHub wraps base64 content.
		if len(encoded) > 8 {
			encoded = encoded[:8] + "\n" + encoded[8:]
		}
		writeJSON(t, w, map[string]any{"sha": sha, "encoding": "base64", "content": encoded})
	})
	return mux
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestSource(t *testing.T, fake *fakeGitHub, cfg *Config, ignore ...string) *Source {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), "token", WithBaseURL(server.URL), WithRequestsPerSecond(1000))
	require.NoError(t, err)
	return New(cfg, client, ignore...)
}

func walkAll(t *testing.T, s *Source) ([]domain.SourceFile, int, error) {
	t.Helper()
	var files []domain.SourceFile
	skipped, err := s.Walk(context.Background(), func(f domain.SourceFile) error {
		files = append(files, f)
		return nil
	})
	return files, skipped, err
}

func TestSource_Name(t *testing.T) {
	s := New(&Config{Owner: "octo", Repo: "hello", Ref: "dev"}, nil)
	assert.Equal(t, "octo/hello@dev", s.Name())

	var _ driven.CorpusSource = s
}

func TestSource_Walk(t *testing.T) {
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	fake := &fakeGitHub{
		defaultBranch: "main",
		entries: []treeEntry{
			{Path: "cmd", Type: "tree", SHA: "d1"},
			{Path: "cmd/main.go", Type: "blob", SHA: "b1", Size: 20},
			{Path: "README.md", Type: "blob", SHA: "b2", Size: 10},
			{Path: "node_modules/x/index.js", Type: "blob", SHA: "b3", Size: 5},
			{Path: "docs/logo.png", Type: "blob", SHA: "b4", Size: 5},
			{Path: "huge.sql", Type: "blob", SHA: "b5", Size: MaxBlobSize + 1},
			{Path: "blank.txt", Type: "blob", SHA: "b6", Size: 3},
			{Path: "gone.go", Type: "blob", SHA: "b7", Size: 3},
		},
		blobs: map[string]string{
			"b1": "package main\n\nfunc main() {}\n",
			"b2": "# Hello\xff",
			"b6": "  \n",
		},
	}
	s := newTestSource(t, fake, &Config{Owner: "octo", Repo: "hello"})

	files, skipped, err := walkAll(t, s)

	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, fake.treeRefs, "default branch is resolved")
	assert.Equal(t, 2, skipped, "oversized and unreadable blobs are skipped")
	require.Len(t, files, 2)
	assert.Equal(t, domain.SourceFile{RelPath: "cmd/main.go", Content: "package main\n\nfunc main() {}\n"}, files[0])
	assert.Equal(t, domain.SourceFile{RelPath: "README.md", Content: "# Hello"}, files[1])
}

func TestSource_Walk_RefAndPatterns(t *testing.T) {
	fake := &fakeGitHub{
		entries: []treeEntry{
			{Path: "a.go", Type: "blob", SHA: "b1", Size: 1},
			{Path: "b.md", Type: "blob", SHA: "b2", Size: 1},
			{Path: "vendor/c.go", Type: "blob", SHA: "b3", Size: 1},
		},
		blobs: map[string]string{"b1": "a", "b2": "b", "b3": "c"},
	}
	s := newTestSource(t, fake, &Config{Owner: "octo", Repo: "hello", Ref: "v1", FilePatterns: []string{"*.go"}}, "vendor")

	files, _, err := walkAll(t, s)

	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, fake.treeRefs)
	require.Len(t, files, 1)
	assert.Equal(t, "a.go", files[0].RelPath)
}

func TestSource_Walk_Errors(t *testing.T) {
	t.Run("repository not found", func(t *testing.T) {
		s := newTestSource(t, &fakeGitHub{}, &Config{Owner: "octo", Repo: "missing"})
		_, _, err := walkAll(t, s)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRepoNotFound)
	})

	t.Run("callback error stops the walk", func(t *testing.T) {
		fake := &fakeGitHub{
			entries: []treeEntry{
				{Path: "a.go", Type: "blob", SHA: "b1", Size: 1},
				{Path: "b.go", Type: "blob", SHA: "b2", Size: 1},
			},
			blobs: map[string]string{"b1": "a", "b2": "b"},
		}
		s := newTestSource(t, fake, &Config{Owner: "octo", Repo: "hello", Ref: "main"})

		calls := 0
		_, err := s.Walk(context.Background(), func(domain.SourceFile) error {
			calls++
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, calls)
	})

	t.Run("server error on blob is skipped", func(t *testing.T) {
		logger.SetOutput(io.Discard)
		defer logger.SetOutput(os.Stderr)

		fake := &fakeGitHub{
			entries:   []treeEntry{{Path: "a.go", Type: "blob", SHA: "b1", Size: 1}},
			failBlobs: map[string]int{"b1": http.StatusInternalServerError},
		}
		s := newTestSource(t, fake, &Config{Owner: "octo", Repo: "hello", Ref: "main"})

		files, skipped, err := walkAll(t, s)
		require.NoError(t, err)
		assert.Empty(t, files)
		assert.Equal(t, 1, skipped)
	})
}

func TestClient_MapsErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		body    string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "bad credentials",
			status: http.StatusUnauthorized,
			body:   `{"message":"Bad credentials"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
				assert.Equal(t, "Bad credentials", apiErr.Message)
				assert.Equal(t, "/repos/octo/hello", apiErr.URL)
				assert.Contains(t, describe("octo/hello", err).Error(), "invalid token")
			},
		},
		{
			name:   "missing repository",
			status: http.StatusNotFound,
			body:   `{"message":"Not Found"}`,
			check: func(t *testing.T, err error) {
				assert.Equal(t, http.StatusNotFound, statusOf(err))
				assert.ErrorIs(t, describe("octo/hello", err), ErrRepoNotFound)
			},
		},
		{
			name:   "quota spent",
			status: http.StatusForbidden,
			headers: map[string]string{
				"X-RateLimit-Limit":     "60",
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     "4102444800",
			},
			body: `{"message":"API rate limit exceeded for 1.2.3.4."}`,
			check: func(t *testing.T, err error) {
				var rl *RateLimitError
				require.ErrorAs(t, err, &rl)
				assert.Equal(t, 60, rl.Limit)
				assert.Equal(t, int64(4102444800), rl.ResetAt.Unix())
				assert.ErrorIs(t, err, domain.ErrRateLimited)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client, err := NewClient(context.Background(), "", WithBaseURL(server.URL), WithRequestsPerSecond(1000))
			require.NoError(t, err)

			_, err = client.GetRepository(context.Background(), "octo", "hello")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
