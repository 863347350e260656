// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch searches the indexed codebase.
	ViewSearch
	// ViewAsk answers questions from the codebase or uploaded documents.
	ViewAsk
	// ViewGenerate requests structured code generation.
	ViewGenerate
	// ViewDocuments lists uploaded documents.
	ViewDocuments
	// ViewSettings is the settings configuration view.
	ViewSettings
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewAsk:
		return "ask"
	case ViewGenerate:
		return "generate"
	case ViewDocuments:
		return "documents"
	case ViewSettings:
		return "settings"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// SearchCompleted carries corpus search hits back to the model.
type SearchCompleted struct {
	Query string
	Hits  []domain.SearchHit
	Err   error
}

// AnswerCompleted carries a grounded answer.
type AnswerCompleted struct {
	Answer *domain.Answer
	Err    error
}

// GenerationCompleted carries a code generation result.
type GenerationCompleted struct {
	Result *domain.GenerationResult
	Err    error
}

// IndexCompleted signals a corpus build finished.
type IndexCompleted struct {
	Stats domain.CorpusStats
	Err   error
}

// DocumentsLoaded carries the uploaded documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentDeleted signals a document and its records were removed.
type DocumentDeleted struct {
	DocumentID string
	Removed    int
	Err        error
}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// SettingsSaved signals a setting was stored.
type SettingsSaved struct {
	Key string
	Err error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
