// Package domain holds the types every layer shares: chunks and search hits,
// uploaded documents, generation results, application settings, and the
// error taxonomy in errors.go and failures.go.
//
// It imports nothing outside the standard library, and nothing under
// internal/ imports in the other direction except through these types.
package domain
