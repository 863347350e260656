package domain

import (
	"fmt"
	"time"
)

// SearchHit is a record returned by a vector index, ordered by Score.
type SearchHit struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// MetaString returns the string metadata value for key, or "".
func (h SearchHit) MetaString(key string) string {
	if h.Metadata == nil {
		return ""
	}
	s, _ := h.Metadata[key].(string)
	return s
}

// Label names the hit by file path or uploaded filename, plus the chunk
// index when known. Hits without either fall back to the record id.
func (h SearchHit) Label() string {
	name := h.MetaString(MetaPath)
	if name == "" {
		name = h.MetaString(MetaFilename)
	}
	if name == "" {
		return h.ID
	}
	if idx, ok := h.Metadata[MetaChunkIndex]; ok {
		return fmt.Sprintf("%s #%v", name, idx)
	}
	return name
}

// SearchScope selects which records a question is answered from.
type SearchScope string

// Available search scopes.
const (
	// ScopeCodebase answers from the indexed corpus.
	ScopeCodebase SearchScope = "codebase"

	// ScopeDocuments answers from uploaded documents.
	ScopeDocuments SearchScope = "documents"
)

// IsValid returns true if the scope is recognised.
func (s SearchScope) IsValid() bool {
	return s == ScopeCodebase || s == ScopeDocuments
}

// Answer is a grounded answer to a question.
type Answer struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Sources  []SearchHit `json:"sources"`
}

// NotInContextAnswer is returned when retrieval finds nothing to ground on.
const NotInContextAnswer = "The document does not contain this information."

// CorpusStats summarises the most recent corpus build.
type CorpusStats struct {
	Source   string        `json:"source"`
	Files    int           `json:"files"`
	Skipped  int           `json:"skipped"`
	Chunks   int           `json:"chunks"`
	Duration time.Duration `json:"duration"`
	Indexed  bool          `json:"indexed"`

	// Backend is the vector index that received the chunks.
	Backend string `json:"backend,omitempty"`

	// FinishedAt is when the build completed.
	FinishedAt time.Time `json:"finished_at,omitempty"`
}
