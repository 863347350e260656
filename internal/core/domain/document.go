package domain

import (
	"fmt"
	"time"
)

// Chunk is a retrieval-sized window of a corpus file or uploaded document.
// Chunks are immutable; re-indexing supersedes them under the same ID.
type Chunk struct {
	// ID is "{SourcePath}:{Index}", unique within a corpus.
	ID string

	// Text is the chunk content.
	Text string

	// SourcePath is the relative file path or document ID the chunk came from.
	SourcePath string

	// Index is the ordinal position within the source.
	Index int

	// Metadata is stored alongside the vector.
	Metadata map[string]any
}

// ChunkID builds the identifier of the chunk at index within sourcePath.
func ChunkID(sourcePath string, index int) string {
	return fmt.Sprintf("%s:%d", sourcePath, index)
}

// Document is an uploaded text document.
// It owns every indexed record tagged with metadata doc_id == ID.
type Document struct {
	// ID is a random UUID.
	ID string `json:"doc_id"`

	// Filename is the name supplied by the uploader.
	Filename string `json:"filename"`

	// StoragePath is where the raw upload was written.
	StoragePath string `json:"storage_path"`

	// ChunkCount is the number of chunks indexed for the document.
	ChunkCount int `json:"chunks"`

	// Size is the raw upload size in bytes.
	Size int64 `json:"size"`

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time `json:"created_at"`
}

// Metadata keys shared by the indexer, the upload path and the vector backends.
const (
	MetaPath       = "path"
	MetaChunkIndex = "chunk_index"
	MetaType       = "type"
	MetaDocID      = "doc_id"
	MetaFilename   = "filename"
)

// Record types stored in MetaType.
const (
	RecordTypeCodebase = "codebase"
	RecordTypeDocument = "document"
)
