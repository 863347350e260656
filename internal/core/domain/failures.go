package domain

import "fmt"

// IngestError reports a corpus file that could not be read or decoded.
// It is logged and the file is skipped; it never aborts a directory walk.
type IngestError struct {
	Path string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Path, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// IndexBackendError reports that the persistent vector backend is unavailable.
// The vector index falls back to memory when it sees one; callers never do.
type IndexBackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *IndexBackendError) Error() string {
	return fmt.Sprintf("vector backend %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *IndexBackendError) Unwrap() error { return e.Err }

// RetrievalError reports an embedding or search failure for a request.
type RetrievalError struct {
	Query string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// MalformedOutputError reports model output that could not be extracted or
// decoded as a JSON object. Generation retries when it sees one.
type MalformedOutputError struct {
	Reason string
	Err    error
}

func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model output: %s: %v", e.Reason, e.Err)
	}
	return "malformed model output: " + e.Reason
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// SchemaError reports a normalised payload that still does not match the
// GenerationResult shape.
type SchemaError struct {
	Field string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("generation result schema: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("generation result schema: %v", e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// GenerationBackendError reports an LLM transport or inference failure.
// It is fatal immediately and never retried.
type GenerationBackendError struct {
	Model string
	Err   error
}

func (e *GenerationBackendError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("generation backend %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("generation backend: %v", e.Err)
}

func (e *GenerationBackendError) Unwrap() error { return e.Err }

// GenerationError is returned when no structured result could be produced.
// Err holds the failure of the last attempt.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("code generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
