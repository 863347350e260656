package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// recoveredAssumption is recorded when a legacy payload is wrapped into a file.
const recoveredAssumption = "Output format was non-standard"

// legacyMarkers are keys that identify a payload written in the older
// single-snippet shape.
var legacyMarkers = []string{"class", "code", "content"}

// parseGeneration turns raw model output into a validated result.
// Errors are *domain.MalformedOutputError or *domain.SchemaError.
func parseGeneration(raw string) (*domain.GenerationResult, error) {
	candidate, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, &domain.MalformedOutputError{Reason: "decode json", Err: err}
	}
	if payload == nil {
		return nil, &domain.MalformedOutputError{Reason: "top-level value is not an object"}
	}

	payload = normalizeGeneration(payload)
	sanitizeGeneration(payload)
	return decodeGeneration(payload)
}

// extractJSON finds the JSON object in model output. The span from the first
// '{' to the last '}' wins when it is valid JSON; otherwise the first balanced
// block is used. When neither is valid the span is returned so the decoder
// reports why.
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", &domain.MalformedOutputError{Reason: "no JSON object found in output"}
	}

	span := raw[start : end+1]
	if json.Valid([]byte(span)) {
		return span, nil
	}
	if block, ok := firstBalancedBlock(raw[start:]); ok {
		return block, nil
	}
	return span, nil
}

// firstBalancedBlock returns the prefix of s, which starts with '{', that
// closes the opening brace. Braces inside JSON strings are ignored.
func firstBalancedBlock(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// normalizeGeneration backfills missing fields and wraps legacy payloads.
// It returns a new map and never mutates its input.
func normalizeGeneration(payload map[string]any) map[string]any {
	if _, ok := payload["files"]; !ok && hasLegacyMarker(payload) {
		body, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			body = []byte(fmt.Sprint(payload))
		}
		return map[string]any{
			"summary":     domain.RecoveredGenerationSummary,
			"assumptions": []any{recoveredAssumption},
			"files": []any{map[string]any{
				"path":     domain.RecoveredFilePath,
				"action":   string(domain.FileActionCreate),
				"language": domain.LanguageForPath(domain.RecoveredFilePath),
				"content":  string(body),
			}},
		}
	}

	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	if _, ok := out["summary"]; !ok {
		out["summary"] = domain.DefaultGenerationSummary
	}
	if _, ok := out["assumptions"]; !ok {
		out["assumptions"] = []any{}
	}

	rawFiles, ok := out["files"]
	if !ok || rawFiles == nil {
		out["files"] = []any{}
		return out
	}
	list, ok := rawFiles.([]any)
	if !ok {
		// Left for the typed decode to reject.
		return out
	}

	files := make([]any, 0, len(list))
	for _, entry := range list {
		f, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		file := make(map[string]any, len(f)+3)
		for k, v := range f {
			file[k] = v
		}
		if _, ok := file["action"]; !ok {
			file["action"] = string(domain.FileActionCreate)
		}
		if _, ok := file["language"]; !ok {
			p, _ := file["path"].(string)
			file["language"] = domain.LanguageForPath(p)
		}
		if _, ok := file["content"]; !ok {
			file["content"] = ""
		}
		files = append(files, file)
	}
	out["files"] = files
	return out
}

func hasLegacyMarker(payload map[string]any) bool {
	for _, k := range legacyMarkers {
		if _, ok := payload[k]; ok {
			return true
		}
	}
	return false
}

// sanitizeGeneration rewrites unsafe paths to their base name and truncates
// oversized content in place.
func sanitizeGeneration(payload map[string]any) {
	files, ok := payload["files"].([]any)
	if !ok {
		return
	}
	for _, entry := range files {
		file, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if p, ok := file["path"].(string); ok {
			if safe := safePath(p); safe != p {
				logger.Warn("Rewrote unsafe generated path %q to %q", p, safe)
				file["path"] = safe
			}
		}
		if content, ok := file["content"].(string); ok && len(content) > domain.MaxGeneratedFileBytes {
			file["content"] = truncateUTF8(content, domain.MaxGeneratedFileBytes) + domain.TruncationMarker
		}
	}
}

// safePath returns p unchanged unless it is absolute or escapes its
// directory, in which case only the base name is kept.
func safePath(p string) string {
	slashed := strings.ReplaceAll(p, "\\", "/")
	unsafe := strings.HasPrefix(slashed, "/") || hasDrivePrefix(slashed)
	if !unsafe {
		for _, seg := range strings.Split(slashed, "/") {
			if seg == ".." {
				unsafe = true
				break
			}
		}
	}
	if !unsafe {
		return p
	}
	base := path.Base(slashed)
	if base == "/" || base == "." || base == ".." {
		return domain.RecoveredFilePath
	}
	return base
}

func hasDrivePrefix(p string) bool {
	return len(p) >= 2 && p[1] == ':' &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// decodeGeneration decodes the normalized payload into the typed result.
// Keys the result does not define, such as a model's "explanation", are
// ignored; field types, actions and paths are checked.
func decodeGeneration(payload map[string]any) (*domain.GenerationResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.SchemaError{Err: err}
	}

	var result domain.GenerationResult
	if err := json.Unmarshal(body, &result); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &domain.SchemaError{Field: typeErr.Field, Err: err}
		}
		return nil, &domain.SchemaError{Err: err}
	}

	if result.Assumptions == nil {
		result.Assumptions = []string{}
	}
	if result.Files == nil {
		result.Files = []domain.FileChange{}
	}
	for i, f := range result.Files {
		if !f.Action.IsValid() {
			return nil, &domain.SchemaError{
				Field: fmt.Sprintf("files[%d].action", i),
				Err:   fmt.Errorf("%q is not one of create, modify", f.Action),
			}
		}
		if strings.TrimSpace(f.Path) == "" {
			return nil, &domain.SchemaError{
				Field: fmt.Sprintf("files[%d].path", i),
				Err:   errors.New("path is required"),
			}
		}
	}
	return &result, nil
}
