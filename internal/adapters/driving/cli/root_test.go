package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Flags(t *testing.T) {
	v := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, v)
	assert.Equal(t, "v", v.Shorthand)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config-dir"))
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"index", "search", "ask", "generate", "document", "serve", "mcp", "tui", "settings", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_BootstrapRunsOnce(t *testing.T) {
	defer SetBootstrap(nil)
	defer SetServices(nil)

	calls := 0
	var gotDir string
	closed := 0
	SetBootstrap(func(_ context.Context, dir string) (*Services, error) {
		calls++
		gotDir = dir
		return &Services{Corpus: &mockCorpus{}, Close: func() { closed++ }}, nil
	})

	_, err := executeCommand("--config-dir", "/tmp/ca", "index")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "/tmp/ca", gotDir)
	assert.Equal(t, 1, closed, "services are closed after the command")

	// Services stay installed, so a second command does not bootstrap again.
	_, err = executeCommand("index")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRootCmd_BootstrapError(t *testing.T) {
	defer SetBootstrap(nil)
	SetBootstrap(func(context.Context, string) (*Services, error) {
		return nil, errors.New("no config dir")
	})

	_, err := executeCommand("index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting codeassist: no config dir")
}

func TestRootCmd_VersionSkipsBootstrap(t *testing.T) {
	defer SetBootstrap(nil)
	SetBootstrap(func(context.Context, string) (*Services, error) {
		t.Fatal("version must not bootstrap")
		return nil, nil
	})

	out, err := executeCommand("version")
	require.NoError(t, err)
	assert.Contains(t, out, "codeassist version")
}

func TestShutdown_Idempotent(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	Shutdown()
	Shutdown()
	assert.Equal(t, 1, ts.closed)
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("")
	assert.Equal(t, original, version)
	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}
