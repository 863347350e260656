package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults
var defaultFiles embed.FS

// promptNames lists the templates the store seeds and serves.
var promptNames = []string{driven.PromptAnswer, driven.PromptCodeGen}

// required are the placeholders every template must keep: the retrieved
// context and the user's request.
var required = []string{"%[1]s", "%[2]s"}

// PromptStore serves prompt templates from <dir>/<name>.txt. Missing files
// are seeded from the built-in defaults on first use, and an edited file
// that loses a required placeholder is ignored in favour of the default.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// DefaultPrompt returns the built-in template for name.
func DefaultPrompt(name string) (string, bool) {
	raw, err := defaultFiles.ReadFile("defaults/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(raw)), true
}

// NewPromptStore creates a store rooted at dir, or ~/.codeassist/prompts
// when dir is empty. Nothing touches the disk until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(base, "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string { return s.dir }

// Load returns the template for name.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := DefaultPrompt(name)

	s.seedOnce.Do(func() { s.seedErr = s.seed() })
	if s.seedErr != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt store: %w", s.seedErr)
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	prompt, err := s.read(name)
	switch {
	case err != nil && known:
		prompt = fallback
	case err != nil:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	case known && !hasPlaceholders(prompt):
		logger.Warn("prompts: %s is missing %s, using the built-in prompt", s.path(name), strings.Join(required, " or "))
		prompt = fallback
	}

	s.mu.Lock()
	if prev, ok := s.cache[name]; ok {
		prompt = prev
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()
	return prompt, nil
}

// Reload drops cached templates so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func (s *PromptStore) read(name string) (string, error) {
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// seed creates the directory and writes every default that is not there yet.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}

	files := make(map[string]string, len(promptNames)+1)
	for _, name := range promptNames {
		files[name+".txt"] = "defaults/" + name + ".txt"
	}
	files["README.md"] = "defaults/README.md"

	for target, source := range files {
		dst := filepath.Join(s.dir, target)
		if _, err := os.Stat(dst); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		raw, err := defaultFiles.ReadFile(source)
		if err != nil {
			return fmt.Errorf("read built-in %s: %w", target, err)
		}
		if err := os.WriteFile(dst, raw, 0600); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
	}
	return nil
}

func hasPlaceholders(prompt string) bool {
	for _, p := range required {
		if !strings.Contains(prompt, p) {
			return false
		}
	}
	return true
}
