package chunker_test

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/tome/pkg/chunker"
)

// uniqueWords builds text from numbered words so every substring of
// meaningful length occurs exactly once.
func uniqueWords(totalRunes int) string {
	var b strings.Builder
	for i := 0; b.Len() < totalRunes; i++ {
		fmt.Fprintf(&b, "word%04d ", i)
	}
	return b.String()[:totalRunes]
}

func TestSplit_EmptyInput(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 10})

	chunks := slices.Collect(c.Split(""))
	assert.Empty(t, chunks)
}

func TestSplit_ShortInputSingleChunk(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 1000, ChunkOverlap: 200})

	chunks := slices.Collect(c.Split("just a short note"))
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a short note", chunks[0])
}

func TestSplit_Deterministic(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})
	text := uniqueWords(1500)

	first := slices.Collect(c.Split(text))
	second := slices.Collect(c.Split(text))
	assert.Equal(t, first, second)
}

func TestSplit_Restartable(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})
	seq := c.Split(uniqueWords(1500))

	// The same sequence value iterated twice yields the same chunks.
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestSplit_ChunkSizeLimit(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})

	for chunk := range c.Split(uniqueWords(5000)) {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100)
	}
}

// Every chunk must sit in the input where its predecessor left off:
// no gaps, overlap bounded by the configured value, and the final
// chunk ending at the end of the text. Concatenating the non-overlap
// portions therefore reconstructs the input exactly.
func TestSplit_Coverage(t *testing.T) {
	const size, overlap = 100, 20
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: size, ChunkOverlap: overlap})
	text := uniqueWords(2350)

	chunks := slices.Collect(c.Split(text))
	require.NotEmpty(t, chunks)

	prevStart, prevEnd := -1, 0
	for i, chunk := range chunks {
		start := strings.Index(text, chunk)
		require.GreaterOrEqual(t, start, 0, "chunk %d is not a substring of the input", i)
		end := start + len(chunk)

		if i == 0 {
			assert.Equal(t, 0, start, "first chunk must start the text")
		} else {
			assert.Greater(t, start, prevStart, "chunk %d must advance", i)
			assert.LessOrEqual(t, start, prevEnd, "chunk %d leaves a gap", i)
			assert.LessOrEqual(t, prevEnd-start, overlap, "chunk %d overlaps too much", i)
		}

		prevStart, prevEnd = start, end
	}
	assert.Equal(t, len(text), prevEnd, "last chunk must end the text")
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 1000, ChunkOverlap: 200})
	text := strings.Repeat("a", 500) + "\n\n" + strings.Repeat("b", 600)

	chunks := slices.Collect(c.Split(text))
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"),
		"first chunk should cut at the paragraph break, got %d runes", len(chunks[0]))
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 10})
	sentence := "The quick brown fox jumps over the lazy dog. "
	text := strings.Repeat(sentence, 10)

	chunks := slices.Collect(c.Split(text))
	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0], ". "),
		"first chunk should cut after a sentence, got %q", chunks[0])
}

func TestSplit_HardCutWithoutBoundaries(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 100, ChunkOverlap: 10})
	text := strings.Repeat("x", 250)

	chunks := slices.Collect(c.Split(text))
	require.NotEmpty(t, chunks)
	assert.Len(t, chunks[0], 100)
}

func TestSplit_MultiByteRunesSurviveHardCuts(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 50, ChunkOverlap: 5})
	text := strings.Repeat("日本語テキスト", 40)

	for chunk := range c.Split(text) {
		assert.True(t, utf8.ValidString(chunk))
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 50)
	}
}

// A 2400-character document with the default window settings lands in
// three chunks.
func TestSplit_ThreePageDocumentScenario(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 1000, ChunkOverlap: 200})
	text := uniqueWords(2400)

	chunks := slices.Collect(c.Split(text))
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 1000, "chunk %d", i)
	}
}

func TestNewWithConfig_Defaults(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{})
	text := uniqueWords(2400)

	// Defaults are chunk_size 1000, overlap 200: same shape as the
	// explicit scenario above.
	chunks := slices.Collect(c.Split(text))
	assert.Len(t, chunks, 3)
}

func TestNewWithConfig_OverlapClampedBelowSize(t *testing.T) {
	c := chunker.NewWithConfig(chunker.ChunkerConfig{ChunkSize: 50, ChunkOverlap: 200})

	// A degenerate overlap must not stall the sequence.
	chunks := slices.Collect(c.Split(uniqueWords(500)))
	assert.NotEmpty(t, chunks)
}
