package connectors

import (
	"path"
	"strings"
	"unicode/utf8"
)

// DefaultIgnoreDirs are directory names never descended into.
var DefaultIgnoreDirs = []string{
	"node_modules", ".next", "__pycache__", ".git", "venv", "env",
	"dist", "build", ".vscode", ".idea", "chroma_db", "data",
}

// DefaultIgnoreExtensions are binary or generated file extensions never read.
var DefaultIgnoreExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".pdf", ".zip", ".tar",
	".gz", ".exe", ".dll", ".so", ".pyc", ".pyo", ".db", ".sqlite", ".bin",
	".onnx", ".pkl", ".pt",
}

// IgnoreRules decides which directories and files a source skips.
type IgnoreRules struct {
	dirs map[string]struct{}
	exts map[string]struct{}
}

// NewIgnoreRules returns the default rules plus extra entries.
// An entry of the form "*.ext" adds an extension; anything else adds a directory name.
func NewIgnoreRules(extra ...string) *IgnoreRules {
	r := &IgnoreRules{
		dirs: make(map[string]struct{}, len(DefaultIgnoreDirs)+len(extra)),
		exts: make(map[string]struct{}, len(DefaultIgnoreExtensions)),
	}
	for _, d := range DefaultIgnoreDirs {
		r.dirs[d] = struct{}{}
	}
	for _, e := range DefaultIgnoreExtensions {
		r.exts[e] = struct{}{}
	}
	for _, e := range extra {
		e = strings.TrimSpace(e)
		switch {
		case e == "":
		case strings.HasPrefix(e, "*."):
			r.exts[strings.ToLower(e[1:])] = struct{}{}
		default:
			r.dirs[strings.Trim(e, "/")] = struct{}{}
		}
	}
	return r
}

// SkipDir reports whether a directory with this base name is ignored.
func (r *IgnoreRules) SkipDir(name string) bool {
	_, ok := r.dirs[name]
	return ok
}

// SkipFile reports whether a file with this base name is ignored by extension.
func (r *IgnoreRules) SkipFile(name string) bool {
	_, ok := r.exts[strings.ToLower(path.Ext(name))]
	return ok
}

// SkipPath reports whether a slash-separated relative path is ignored,
// either through one of its directories or its extension.
func (r *IgnoreRules) SkipPath(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if r.SkipDir(dir) {
			return true
		}
	}
	return r.SkipFile(parts[len(parts)-1])
}

// DecodeText drops invalid UTF-8 from raw and reports whether anything
// other than whitespace is left.
func DecodeText(raw []byte) (string, bool) {
	text := string(raw)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return text, strings.TrimSpace(text) != ""
}
