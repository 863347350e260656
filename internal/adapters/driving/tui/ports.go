// Package tui is the interactive terminal assistant: a menu over search,
// ask, generate, documents and settings views.
package tui

import "github.com/custodia-labs/codeassist/internal/core/ports/driving"

// Ports are the services behind the views. Only Corpus is required. The
// menu disables Ask, Generate and Documents when their service is nil, and
// the settings view reports a missing service itself.
type Ports struct {
	Corpus     driving.CorpusService
	Query      driving.QueryService
	Generation driving.GenerationService
	Document   driving.DocumentService
	Settings   driving.SettingsService
}

// Validate reports a missing corpus service.
func (p *Ports) Validate() error {
	if p == nil || p.Corpus == nil {
		return ErrMissingCorpusService
	}
	return nil
}
