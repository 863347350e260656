// Package mcp serves codebase search, grounded answers and code generation
// to MCP clients over stdio or streamable HTTP.
package mcp

import "errors"

// ErrMissingCorpusService is returned by NewServer without a corpus service.
var ErrMissingCorpusService = errors.New("mcp: corpus service is required")
