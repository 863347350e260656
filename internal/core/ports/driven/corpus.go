package driven

import (
	"context"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// CorpusSource yields the text files that make up a corpus.
// Sources apply their own ignore rules and skip unreadable files.
type CorpusSource interface {
	// Name describes the source, e.g. a directory or "owner/repo".
	Name() string

	// Walk calls fn for every indexable file. A non-nil error from fn stops the walk.
	// Walk reports the number of files it skipped.
	Walk(ctx context.Context, fn func(domain.SourceFile) error) (skipped int, err error)
}

// ChangeKind describes a change to a corpus file.
type ChangeKind int

// Change kinds reported by a WatchableSource.
const (
	// ChangeUpsert means the file was created or written.
	ChangeUpsert ChangeKind = iota

	// ChangeRemove means the file was removed or renamed away.
	ChangeRemove
)

// FileChange is a single change reported by a WatchableSource.
type FileChange struct {
	Kind ChangeKind

	// File carries the relative path, and the content for ChangeUpsert.
	File domain.SourceFile
}

// WatchableSource is an optional interface for sources that can report changes.
type WatchableSource interface {
	CorpusSource

	// Watch streams file changes until ctx is cancelled. The channel is closed on return.
	Watch(ctx context.Context) (<-chan FileChange, error)
}
