package domain

import (
	"path"
	"strings"
)

// FileAction says whether a generated file is new or replaces an existing one.
type FileAction string

// Available file actions.
const (
	FileActionCreate FileAction = "create"
	FileActionModify FileAction = "modify"
)

// IsValid returns true if the action is recognised.
func (a FileAction) IsValid() bool {
	return a == FileActionCreate || a == FileActionModify
}

// FileChange is one file produced by a generation request.
type FileChange struct {
	Path     string     `json:"path"`
	Action   FileAction `json:"action"`
	Language string     `json:"language"`
	Content  string     `json:"content"`
}

// GenerationResult is the validated output of a generation request.
// It is produced per instruction and never persisted.
type GenerationResult struct {
	Summary     string       `json:"summary"`
	Assumptions []string     `json:"assumptions"`
	Files       []FileChange `json:"files"`
}

// Generation defaults and limits.
const (
	// DefaultGenerationSummary backfills a missing summary.
	DefaultGenerationSummary = "Code generated successfully."

	// RecoveredGenerationSummary marks a payload wrapped from a legacy shape.
	RecoveredGenerationSummary = "Auto-recovered code generation"

	// RecoveredFilePath names the file a legacy payload is wrapped into.
	RecoveredFilePath = "generated_code.txt"

	// MaxGeneratedFileBytes is the content ceiling for a single file.
	MaxGeneratedFileBytes = 1024 * 1024

	// TruncationMarker is appended to content cut at MaxGeneratedFileBytes.
	TruncationMarker = "\n... [TRUNCATED DUE TO SIZE] ..."

	// DefaultLanguage tags files with an unknown extension.
	DefaultLanguage = "text"
)

var extensionLanguages = map[string]string{
	"py":         "python",
	"ts":         "typescript",
	"tsx":        "typescript",
	"js":         "javascript",
	"jsx":        "javascript",
	"html":       "html",
	"css":        "css",
	"json":       "json",
	"md":         "markdown",
	"sql":        "sql",
	"sh":         "shell",
	"yml":        "yaml",
	"yaml":       "yaml",
	"dockerfile": "dockerfile",
	"go":         "go",
}

// LanguageForPath infers a language tag from a file path's extension.
// A file named Dockerfile maps to "dockerfile"; unknown extensions map to DefaultLanguage.
func LanguageForPath(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if strings.EqualFold(base, "dockerfile") {
		return "dockerfile"
	}
	ext := strings.TrimPrefix(path.Ext(base), ".")
	if lang, ok := extensionLanguages[strings.ToLower(ext)]; ok {
		return lang
	}
	return DefaultLanguage
}
