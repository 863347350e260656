package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown provider, backend or file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrTooLarge indicates an upload exceeds the configured size limit.
	ErrTooLarge = errors.New("too large")

	// ErrDimensionMismatch indicates a vector does not match the index dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Generation and question answering are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Indexing and retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// DeleteCountUnknown is returned by VectorIndex.DeleteByField when the backend
// removed the matching records but cannot report how many. It is distinct
// from 0, which always means nothing matched.
const DeleteCountUnknown = -1
