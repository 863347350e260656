package driving

import "github.com/custodia-labs/codeassist/internal/core/domain"

// SettingsService reads and edits the persisted configuration.
type SettingsService interface {
	// Get returns the stored settings with environment overrides on top.
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error

	// Set validates value for a dot-notation key such as "chunk.max_chars"
	// and stores it.
	Set(key, value string) error
	Keys() []string
	Defaults() domain.AppSettings

	// PingEmbedding and PingLLM contact the configured backend. A backend
	// that is not configured is not an error.
	PingEmbedding() error
	PingLLM() error
}
