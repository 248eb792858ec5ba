package chunker

import (
	"fmt"
	"strings"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// separators in priority order. Paragraph breaks beat line breaks beat
// sentence endings beat clause breaks beat plain spaces.
var separators = []string{"\n\n", "\n", ". ", "? ", "! ", "; ", ", ", " "}

// Options control chunk size and overlap in bytes. A zero ChunkSize selects
// the defaults; with an explicit ChunkSize an Overlap of zero means no
// overlap, not the default.
type Options struct {
	ChunkSize int
	Overlap   int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
		if o.Overlap == 0 {
			o.Overlap = DefaultOverlap
		}
	}
	return o
}

type Chunker struct {
	opts Options
}

func (c *Chunker) Options() Options {
	return c.opts
}

func New(opts Options) (*Chunker, error) {
	opts = opts.withDefaults()
	if opts.ChunkSize < 0 || opts.Overlap < 0 {
		return nil, fmt.Errorf("chunk size and overlap must be non-negative")
	}
	if opts.Overlap >= opts.ChunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", opts.Overlap, opts.ChunkSize)
	}
	return &Chunker{opts: opts}, nil
}

// Split cuts text into overlapping chunks, preferring to break at natural
// boundaries. A boundary is only taken when it lands past the midpoint of
// the current window, otherwise the hard cut at ChunkSize wins.
func (c *Chunker) Split(text string) []string {
	size := c.opts.ChunkSize
	overlap := c.opts.Overlap

	if len(text) <= size {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	currentIndex := 0
	for currentIndex < len(text)-overlap {
		endIndex := currentIndex + size
		if endIndex > len(text) {
			endIndex = len(text)
		}
		if endIndex < len(text) {
			endIndex = c.adjustBoundary(text, currentIndex, endIndex)
		}
		chunk := strings.TrimSpace(text[currentIndex:endIndex])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		// An early separator with a large overlap would move the cursor
		// backward; never retreat, forward progress is guaranteed.
		next := endIndex - overlap
		if next <= currentIndex {
			next = endIndex
		}
		currentIndex = next
	}
	return chunks
}

func (c *Chunker) adjustBoundary(text string, currentIndex, endIndex int) int {
	for _, sep := range separators {
		limit := endIndex + len(sep)
		if limit > len(text) {
			limit = len(text)
		}
		idx := strings.LastIndex(text[:limit], sep)
		if idx > currentIndex+c.opts.ChunkSize/2 {
			return idx + len(sep)
		}
	}
	return endIndex
}
