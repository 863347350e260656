// Package chunker splits text into overlapping, paragraph-aligned windows.
package chunker

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 2000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

const paragraphSep = "\n\n"

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// Processor splits text into chunks with a fixed window and overlap.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
// The overlap must be smaller than the chunk size; this is not checked.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window in characters.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap in characters.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split chunks text with the processor's window and overlap.
func (p *Processor) Split(text string) []string {
	return Split(text, p.chunkSize, p.overlap)
}

// Chunk splits text and wraps each piece as a domain.Chunk owned by sourcePath.
// Every chunk gets a copy of meta plus its chunk_index.
func (p *Processor) Chunk(sourcePath, text string, meta map[string]any) []domain.Chunk {
	pieces := p.Split(text)
	if len(pieces) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		m := make(map[string]any, len(meta)+1)
		for k, v := range meta {
			m[k] = v
		}
		m[domain.MetaChunkIndex] = i

		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID(sourcePath, i),
			Text:       piece,
			SourcePath: sourcePath,
			Index:      i,
			Metadata:   m,
		}
	}
	return chunks
}

// Split normalises text, packs its paragraphs into windows of at most
// maxChars characters and then carries the last overlapChars characters of
// each chunk into the next one. Lengths are counted in runes.
//
// Paragraphs longer than maxChars are cut into maxChars slices whose starts
// advance by maxChars-overlapChars. The carry-over pass runs on top of that,
// so hard-split boundaries receive the overlap twice.
func Split(text string, maxChars, overlapChars int) []string {
	chunks := pack(normalise(text), maxChars, overlapChars)
	if overlapChars <= 0 || len(chunks) < 2 {
		return chunks
	}

	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		out[i] = strings.TrimSpace(tail(chunks[i-1], overlapChars) + paragraphSep + chunks[i])
	}
	return out
}

// normalise strips carriage returns, collapses horizontal whitespace runs and
// reduces three or more newlines to a paragraph break.
func normalise(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, paragraphSep)
	return strings.TrimSpace(text)
}

// pack greedily groups paragraphs into chunks without the carry-over pass.
func pack(text string, maxChars, overlapChars int) []string {
	if text == "" {
		return nil
	}

	var (
		chunks []string
		buf    []string
		bufLen int
	)

	flush := func() {
		if len(buf) == 0 {
			return
		}
		if chunk := strings.TrimSpace(strings.Join(buf, paragraphSep)); chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf = buf[:0]
		bufLen = 0
	}

	for _, para := range strings.Split(text, paragraphSep) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		runes := []rune(para)
		if len(runes) > maxChars {
			flush()
			chunks = append(chunks, hardSplit(runes, maxChars, overlapChars)...)
			continue
		}

		addLen := len(runes)
		if len(buf) > 0 {
			addLen += len(paragraphSep)
		}
		if bufLen+addLen > maxChars {
			flush()
			addLen = len(runes)
		}
		buf = append(buf, para)
		bufLen += addLen
	}
	flush()

	return chunks
}

// hardSplit cuts an oversized paragraph into maxChars slices overlapping by overlapChars.
func hardSplit(runes []rune, maxChars, overlapChars int) []string {
	step := maxChars - overlapChars
	if step < 1 {
		step = 1
	}

	var slices []string
	for start := 0; start < len(runes); start += step {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			slices = append(slices, s)
		}
		if end == len(runes) {
			break
		}
	}
	return slices
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[len(runes)-n:])
}
