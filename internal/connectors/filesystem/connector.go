// Package filesystem provides a corpus source that walks a local directory
// and, optionally, watches it for changes with fsnotify.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/codeassist/internal/connectors"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// DefaultDebounce is how long a path must stay quiet before its change is emitted.
const DefaultDebounce = 300 * time.Millisecond

// Verify interface compliance.
var _ driven.WatchableSource = (*Connector)(nil)

// Connector walks a codebase directory.
type Connector struct {
	root     string
	rules    *connectors.IgnoreRules
	exclude  []string
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// Option configures a Connector.
type Option func(*Connector)

// WithIgnore adds directory names or "*.ext" patterns to the default ignore rules.
func WithIgnore(extra ...string) Option {
	return func(c *Connector) {
		c.rules = connectors.NewIgnoreRules(extra...)
	}
}

// WithExcludeDir skips an absolute directory, typically the application data directory.
func WithExcludeDir(dir string) Option {
	return func(c *Connector) {
		if dir == "" {
			return
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		c.exclude = append(c.exclude, filepath.Clean(dir))
	}
}

// WithDebounce sets the per-path quiet period used by Watch.
func WithDebounce(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// New creates a connector rooted at root.
func New(root string, opts ...Option) *Connector {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	c := &Connector{
		root:     root,
		rules:    connectors.NewIgnoreRules(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the absolute root directory.
func (c *Connector) Name() string {
	return c.root
}

// Root returns the absolute root directory.
func (c *Connector) Root() string {
	return c.root
}

// Walk calls fn for every non-empty text file under the root.
// Files that cannot be read are logged and counted as skipped.
func (c *Connector) Walk(ctx context.Context, fn func(domain.SourceFile) error) (int, error) {
	if err := c.checkRoot(); err != nil {
		return 0, err
	}

	skipped := 0
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == c.root {
				return walkErr
			}
			logger.Warn("%v", &domain.IngestError{Path: path, Err: walkErr})
			skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != c.root && c.skipDir(path, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || c.rules.SkipFile(d.Name()) {
			return nil
		}

		file, ok, err := c.read(path)
		if err != nil {
			logger.Warn("%v", err)
			skipped++
			return nil
		}
		if !ok {
			return nil
		}
		return fn(file)
	})
	if err != nil {
		return skipped, fmt.Errorf("walk %s: %w", c.root, err)
	}
	return skipped, nil
}

// Watch streams upserts and removals under the root until ctx is cancelled.
// Changes to a path are coalesced until it has been quiet for the debounce period.
func (c *Connector) Watch(ctx context.Context) (<-chan driven.FileChange, error) {
	if err := c.checkRoot(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("connector closed")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if c.watcher != nil {
		_ = c.watcher.Close()
	}
	c.watcher = watcher
	c.mu.Unlock()

	if err := c.addTree(watcher, c.root); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	out := make(chan driven.FileChange, 64)
	go c.watchLoop(ctx, watcher, out)
	return out, nil
}

// Close stops any running watch.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- driven.FileChange) {
	defer close(out)
	defer watcher.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(c.debounce/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			now := time.Now()
			for _, path := range c.handleFsEvent(watcher, event) {
				pending[path] = now
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch %s: %v", c.root, err)

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < c.debounce {
					continue
				}
				delete(pending, path)
				change, ok := c.resolve(path)
				if !ok {
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handleFsEvent returns the absolute file paths an event makes dirty.
// A created directory is added to the watcher and its files are reported.
func (c *Connector) handleFsEvent(watcher *fsnotify.Watcher, event fsnotify.Event) []string {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return nil
	}

	rel, ok := c.rel(event.Name)
	if !ok || c.rules.SkipPath(rel) || c.excluded(event.Name) {
		return nil
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if watcher != nil {
				if err := c.addTree(watcher, event.Name); err != nil {
					logger.Warn("watch %s: %v", event.Name, err)
				}
			}
			return c.filesUnder(event.Name)
		}
	}
	return []string{event.Name}
}

// resolve turns a dirty path into a change by looking at what is on disk now.
// A file that disappeared, or that no longer holds any text, is removed.
func (c *Connector) resolve(path string) (driven.FileChange, bool) {
	rel, ok := c.rel(path)
	if !ok {
		return driven.FileChange{}, false
	}
	remove := driven.FileChange{Kind: driven.ChangeRemove, File: domain.SourceFile{RelPath: rel}}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return remove, true
		}
		logger.Warn("%v", &domain.IngestError{Path: path, Err: err})
		return driven.FileChange{}, false
	}
	if !info.Mode().IsRegular() {
		return driven.FileChange{}, false
	}

	file, ok, err := c.read(path)
	if err != nil {
		logger.Warn("%v", err)
		return driven.FileChange{}, false
	}
	if !ok {
		return remove, true
	}
	return driven.FileChange{Kind: driven.ChangeUpsert, File: file}, true
}

// read loads a file. ok is false when nothing but whitespace remains after decoding.
func (c *Connector) read(path string) (domain.SourceFile, bool, error) {
	rel, _ := c.rel(path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.SourceFile{}, false, &domain.IngestError{Path: rel, Err: err}
	}
	text, ok := connectors.DecodeText(raw)
	if !ok {
		return domain.SourceFile{}, false, nil
	}
	return domain.SourceFile{RelPath: rel, Content: text}, true, nil
}

func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.root && c.skipDir(path, d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (c *Connector) filesUnder(dir string) []string {
	var paths []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && c.skipDir(path, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && !c.rules.SkipFile(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths
}

func (c *Connector) checkRoot() error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", c.root)
	}
	return nil
}

func (c *Connector) skipDir(path, name string) bool {
	return c.rules.SkipDir(name) || c.excluded(path)
}

func (c *Connector) excluded(path string) bool {
	for _, dir := range c.exclude {
		if within(dir, path) {
			return true
		}
	}
	return false
}

// rel returns the slash-separated path of p relative to the root.
func (c *Connector) rel(p string) (string, bool) {
	if p == c.root || !within(c.root, p) {
		return "", false
	}
	rel, err := filepath.Rel(c.root, p)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
