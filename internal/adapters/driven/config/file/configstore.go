package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// Config file names. A YAML file takes precedence when both exist.
const (
	TOMLFile = "config.toml"
	YAMLFile = "config.yaml"
)

// codec is one on-disk syntax for the settings tree.
type codec struct {
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

var (
	tomlCodec = codec{marshal: toml.Marshal, unmarshal: toml.Unmarshal}
	yamlCodec = codec{marshal: yaml.Marshal, unmarshal: yaml.Unmarshal}
)

// ConfigStore keeps settings as a flat map of dotted keys ("llm.model") and
// writes them back as nested tables after every Set.
type ConfigStore struct {
	path  string
	codec codec

	mu   sync.RWMutex
	data map[string]any
}

// DefaultDir returns ~/.codeassist.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".codeassist"), nil
}

// NewConfigStore opens the config file in dir, or in DefaultDir when dir is
// empty. A missing file is an empty configuration.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{path: filepath.Join(dir, TOMLFile), codec: tomlCodec}
	if yamlPath := filepath.Join(dir, YAMLFile); fileExists(yamlPath) {
		s.path, s.codec = yamlPath, yamlCodec
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the config file in use.
func (s *ConfigStore) Path() string { return s.path }

// Reload replaces the in-memory settings with the file contents.
func (s *ConfigStore) Reload() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		raw, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	tree := map[string]any{}
	if len(raw) > 0 {
		if err := s.codec.unmarshal(raw, &tree); err != nil {
			return fmt.Errorf("parse %s: %w", s.path, err)
		}
	}

	flat := make(map[string]any)
	flatten(tree, "", flat)

	s.mu.Lock()
	s.data = flat
	s.mu.Unlock()
	return nil
}

// Get returns the raw value stored under key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// GetString returns key as a string, or "" when absent or not a string.
func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetBool returns key as a bool, or false.
func (s *ConfigStore) GetBool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// GetInt returns key as an int. TOML decodes integers as int64 and YAML as
// int; floats are truncated.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	f, _ := number(v)
	return int(f)
}

// GetFloat returns key as a float64, widening integers.
func (s *ConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	f, _ := number(v)
	return f
}

// Set stores value under key and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	raw, err := s.codec.marshal(nest(s.data))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(s.path, raw, 0600)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// flatten copies tree into out with dotted keys.
func flatten(tree map[string]any, prefix string, out map[string]any) {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(child, k, out)
			continue
		}
		out[k] = v
	}
}

// nest turns dotted keys back into tables. A key that is both a value and a
// prefix keeps the value; sorting guarantees the shorter key comes first.
func nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		table := root
		for _, part := range parts[:len(parts)-1] {
			switch next := table[part].(type) {
			case map[string]any:
				table = next
			case nil:
				child := make(map[string]any)
				table[part] = child
				table = child
			default:
				table = nil
			}
			if table == nil {
				break
			}
		}
		if table != nil {
			table[parts[len(parts)-1]] = flat[key]
		}
	}
	return root
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
