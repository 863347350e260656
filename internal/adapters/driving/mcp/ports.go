package mcp

import "github.com/custodia-labs/codeassist/internal/core/ports/driving"

// Ports are the services the server exposes. Only Corpus is required. A nil
// Query or Generation drops its tool, and a nil Document serves an empty
// document list.
type Ports struct {
	Corpus     driving.CorpusService
	Query      driving.QueryService
	Generation driving.GenerationService
	Document   driving.DocumentService
}

// Validate reports a missing corpus service.
func (p *Ports) Validate() error {
	if p == nil || p.Corpus == nil {
		return ErrMissingCorpusService
	}
	return nil
}
