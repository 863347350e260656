package driven

import "github.com/custodia-labs/codeassist/internal/core/domain"

// Chunker splits text into retrieval-sized chunks.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk splits text into chunks owned by sourcePath. Each chunk gets a
	// copy of meta plus its chunk_index. Blank text yields no chunks.
	Chunk(sourcePath, text string, meta map[string]any) []domain.Chunk
}
