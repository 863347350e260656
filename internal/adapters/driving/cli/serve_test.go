package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_Flags(t *testing.T) {
	addr := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, "", addr.DefValue)
	assert.NotNil(t, serveCmd.Flags().Lookup("watch"))
	assert.NotNil(t, serveCmd.Flags().Lookup("mcp-addr"))
	assert.Contains(t, serveCmd.Long, "/assistant/query")
}

func TestServeCmd_NoServices(t *testing.T) {
	_, err := executeCommand("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corpus service not configured")
}

func TestStartWatch_IndexesThenWatches(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	watched := make(chan struct{})
	watchCorpus = func(ctx context.Context) error {
		close(watched)
		<-ctx.Done()
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startWatch(ctx)

	<-watched
	assert.True(t, ts.corpus.indexed)
}

func TestStartWatch_WithoutWatcher(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	startWatch(context.Background())
	assert.False(t, ts.corpus.indexed)
}

func TestMCPServeCmd_Flags(t *testing.T) {
	addr := mcpServeCmd.Flags().Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, "a", addr.Shorthand)
	assert.Equal(t, "", addr.DefValue)
}

func TestMCPServeCmd_NoServices(t *testing.T) {
	_, err := executeCommand("mcp", "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corpus service is required")
}

func TestStartMCP_NoServices(t *testing.T) {
	err := startMCP(context.Background(), "127.0.0.1:0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corpus service is required")
}

func TestTUICmd_NoServices(t *testing.T) {
	_, err := executeCommand("tui")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create TUI")
}
