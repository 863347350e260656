package ai

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/logger"
)

type stubLLM struct {
	name    string
	out     string
	err     error
	pingErr error
	calls   int
	closed  bool
}

func (s *stubLLM) Generate(context.Context, string, driven.GenerateOptions) (string, error) {
	s.calls++
	return s.out, s.err
}
func (s *stubLLM) ModelName() string          { return s.name }
func (s *stubLLM) Ping(context.Context) error { return s.pingErr }
func (s *stubLLM) Close() error               { s.closed = true; return nil }

func quietLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
	return &buf
}

func TestFallbackLLM_PrimarySucceeds(t *testing.T) {
	primary := &stubLLM{name: "ollama", out: "from primary"}
	secondary := &stubLLM{name: "tgi", out: "from secondary"}

	out, err := NewFallbackLLM(primary, secondary).Generate(context.Background(), "p", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "from primary", out)
	assert.Zero(t, secondary.calls)
}

func TestFallbackLLM_UsesSecondary(t *testing.T) {
	logs := quietLogs(t)
	primary := &stubLLM{name: "ollama", err: errors.New("connection refused")}
	secondary := &stubLLM{name: "tgi", out: "from secondary"}

	f := NewFallbackLLM(primary, secondary)
	out, err := f.Generate(context.Background(), "p", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "from secondary", out)
	assert.Contains(t, logs.String(), "connection refused")

	// The primary is tried again on the next call.
	_, _ = f.Generate(context.Background(), "p", driven.GenerateOptions{})
	assert.Equal(t, 2, primary.calls)
}

func TestFallbackLLM_BothFail(t *testing.T) {
	quietLogs(t)
	fbErr := errors.New("tgi down")
	primary := &stubLLM{name: "ollama", err: errors.New("ollama down")}
	secondary := &stubLLM{name: "tgi", err: fbErr}

	_, err := NewFallbackLLM(primary, secondary).Generate(context.Background(), "p", driven.GenerateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, fbErr)
	assert.Contains(t, err.Error(), "ollama down")
}

func TestFallbackLLM_CancelledContextSkipsSecondary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	primary := &stubLLM{name: "ollama", err: context.Canceled}
	secondary := &stubLLM{name: "tgi", out: "x"}

	_, err := NewFallbackLLM(primary, secondary).Generate(ctx, "p", driven.GenerateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, secondary.calls)
}

func TestFallbackLLM_PingAndClose(t *testing.T) {
	primary := &stubLLM{name: "ollama", pingErr: errors.New("down")}
	secondary := &stubLLM{name: "tgi"}
	f := NewFallbackLLM(primary, secondary)

	assert.NoError(t, f.Ping(context.Background()))
	assert.Equal(t, "ollama", f.ModelName())

	secondary.pingErr = errors.New("also down")
	assert.Error(t, f.Ping(context.Background()))

	require.NoError(t, f.Close())
	assert.True(t, primary.closed)
	assert.True(t, secondary.closed)
}
