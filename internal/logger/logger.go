// Package logger is the process-wide log. Warnings and errors always reach
// stderr; debug, info and section lines only with --verbose.
//
// The printf helpers cover most call sites. Code that wants key/value
// attributes takes Slog() and logs through the same sink.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	level = new(slog.LevelVar)
	sink  = &lineHandler{out: os.Stderr, level: level}
	std   = slog.New(sink)
)

func init() {
	level.Set(slog.LevelWarn)
}

// SetVerbose lowers the threshold to debug, or raises it back to warn.
func SetVerbose(v bool) {
	if v {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelWarn)
}

// IsVerbose reports whether debug output is enabled.
func IsVerbose() bool {
	return level.Level() <= slog.LevelDebug
}

// SetOutput redirects every log line to w.
func SetOutput(w io.Writer) {
	sink.mu.Lock()
	sink.out = w
	sink.mu.Unlock()
}

// Slog returns the structured logger behind the helpers.
func Slog() *slog.Logger {
	return std
}

func logf(l slog.Level, format string, args ...any) {
	ctx := context.Background()
	if !std.Enabled(ctx, l) {
		return
	}
	std.Log(ctx, l, fmt.Sprintf(format, args...))
}

// Debug logs in verbose mode only.
func Debug(format string, args ...any) { logf(slog.LevelDebug, format, args...) }

// Info logs in verbose mode only.
func Info(format string, args ...any) { logf(slog.LevelInfo, format, args...) }

// Warn always logs.
func Warn(format string, args ...any) { logf(slog.LevelWarn, format, args...) }

// Error always logs.
func Error(format string, args ...any) { logf(slog.LevelError, format, args...) }

// Section prints a "=== name ===" banner in verbose mode.
func Section(name string) {
	if !IsVerbose() {
		return
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	fmt.Fprintf(sink.out, "\n=== %s ===\n", name)
}

// lineHandler writes "[LEVEL] message key=value" lines without timestamps.
type lineHandler struct {
	mu    sync.Mutex
	out   io.Writer
	level slog.Leveler
}

func (h *lineHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(r.Level.String())
	b.WriteString("] ")
	b.WriteString(r.Message)

	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
		return true
	})
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derived{root: h, attrs: attrs}
}

func (h *lineHandler) WithGroup(string) slog.Handler { return h }

// derived shares the root's writer and lock but carries extra attributes.
type derived struct {
	root  *lineHandler
	attrs []slog.Attr
}

func (d *derived) Enabled(ctx context.Context, l slog.Level) bool { return d.root.Enabled(ctx, l) }

func (d *derived) Handle(ctx context.Context, r slog.Record) error {
	r = r.Clone()
	r.AddAttrs(d.attrs...)
	return d.root.Handle(ctx, r)
}

func (d *derived) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derived{root: d.root, attrs: append(append([]slog.Attr{}, d.attrs...), attrs...)}
}

func (d *derived) WithGroup(string) slog.Handler { return d }
