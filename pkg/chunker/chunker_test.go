package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_RespectsMaxChunkSize(t *testing.T) {
	text := strings.Repeat("This is a sentence. ", 100) // ~2000 chars
	chunks := Split(text, Options{MaxChunkSize: 600, Overlap: 200})

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Content)), 600+50, "chunk exceeds max size by more than a boundary's worth")
	}
}

func TestSplit_ChunksAreOrderedAndContiguous(t *testing.T) {
	text := strings.Repeat("Paragraph one sentence. ", 50)
	chunks := Split(text, Options{MaxChunkSize: 300, Overlap: 50})

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Number)
	}
}

func TestSplit_OverlapCarriesContext(t *testing.T) {
	text := strings.Repeat("word ", 400)
	chunks := Split(text, Options{MaxChunkSize: 100, Overlap: 30})
	require.Greater(t, len(chunks), 1)

	// Overlap means each chunk after the first starts before the previous
	// chunk's end.
	for i := 1; i < len(chunks); i++ {
		assert.Less(t, chunks[i].StartOffset, chunks[i-1].EndOffset)
	}
}

func TestSplit_EmptyTextProducesNoChunks(t *testing.T) {
	assert.Empty(t, Split("   \n\n  ", Options{MaxChunkSize: 600, Overlap: 200}))
}

func TestSplit_SingleSentenceExceedingMaxFallsBackToWhitespace(t *testing.T) {
	// One long "sentence" with no terminal punctuation, forcing the
	// paragraph/whitespace fallback chain.
	text := strings.Repeat("supercalifragilisticexpialidocious ", 50)
	chunks := Split(text, Options{MaxChunkSize: 100, Overlap: 0})
	require.Greater(t, len(chunks), 1)
}

func TestContentHash_DeterministicOverNormalizedContent(t *testing.T) {
	a := ContentHash("hello   world")
	b := ContentHash("hello world")
	assert.Equal(t, a, b, "whitespace differences must not change the hash")

	c := ContentHash("hello world!")
	assert.NotEqual(t, a, c)
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a   b\n\nc  "))
}
