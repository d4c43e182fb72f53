package chunker

import (
	"iter"
	"strings"
	"unicode/utf8"
)

type ChunkerConfig struct {
	ChunkSize    int // window size in runes
	ChunkOverlap int // runes of shared context between consecutive chunks
}

// Chunker splits text into overlapping windows, cutting at the
// largest semantic boundary (paragraph, line, sentence, word) that
// fits inside the window before falling back to a hard cut. Splitting
// is a pure function of the input: same text and config, same chunks.
type Chunker struct {
	config ChunkerConfig
}

// Boundary separators in preference order. A chunk keeps its
// trailing separator so that chunks remain contiguous substrings of
// the input.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

func NewWithConfig(config ChunkerConfig) Chunker {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}

	return Chunker{config: config}
}

// Split returns the chunk sequence for text. The sequence is lazy,
// finite, and restartable; empty input yields an empty sequence.
// Every chunk is at most ChunkSize runes and each chunk after the
// first starts at most ChunkOverlap runes before the end of its
// predecessor.
func (c Chunker) Split(text string) iter.Seq[string] {
	size := c.config.ChunkSize
	overlap := c.config.ChunkOverlap

	return func(yield func(string) bool) {
		runes := []rune(text)
		pos := 0

		for pos < len(runes) {
			end := pos + size
			if end >= len(runes) {
				yield(string(runes[pos:]))
				return
			}

			cut := pos + boundaryCut(runes[pos:end])
			if !yield(string(runes[pos:cut])) {
				return
			}

			next := cut - overlap
			if next <= pos {
				// Chunk shorter than the overlap; advance anyway
				next = cut
			}
			pos = next
		}
	}
}

// boundaryCut returns the chunk length, in runes, for a window that
// is known to be full. It cuts after the last occurrence of the
// highest-priority separator present, or hard-cuts at the window end
// when the window contains no separator at all.
func boundaryCut(window []rune) int {
	w := string(window)

	for _, sep := range separators {
		idx := strings.LastIndex(w, sep)
		if idx <= 0 {
			continue
		}
		return utf8.RuneCountInString(w[:idx]) + utf8.RuneCountInString(sep)
	}

	return len(window)
}
