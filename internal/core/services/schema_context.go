package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/codeassist/internal/logger"
)

// schemaContextHeader prefixes the schema context block.
const schemaContextHeader = "DATABASE SCHEMA CONTEXT:\n"

// schemaExtensions are the file types read from the schema directory.
var schemaExtensions = map[string]bool{
	".sql":    true,
	".prisma": true,
	".dbml":   true,
}

// loadSchemaContext concatenates the schema files directly inside dir.
// A missing directory yields an empty string; unreadable files are skipped.
func loadSchemaContext(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var parts []string
	for _, e := range entries {
		if e.IsDir() || !schemaExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			logger.Warn("Could not read schema file %s: %v", e.Name(), err)
			continue
		}
		parts = append(parts, fmt.Sprintf("--- File: %s ---\n%s", e.Name(), content))
	}
	if len(parts) == 0 {
		return "", nil
	}
	return schemaContextHeader + strings.Join(parts, "\n\n"), nil
}
