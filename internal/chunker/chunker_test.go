package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{ChunkSize: 100, Overlap: 100})
	require.Error(t, err)

	_, err = New(Options{ChunkSize: 100, Overlap: 150})
	require.Error(t, err)

	_, err = New(Options{ChunkSize: 100, Overlap: 20})
	require.NoError(t, err)

	_, err = New(Options{ChunkSize: 150, Overlap: 0})
	require.NoError(t, err)
}

func TestSplitZeroOverlap(t *testing.T) {
	c, err := New(Options{ChunkSize: 100, Overlap: 0})
	require.NoError(t, err)

	chunks := c.Split(strings.Repeat("a", 250))
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 100)
	require.Len(t, chunks[1], 100)
	require.Len(t, chunks[2], 50)
}

func TestSplitLargeOverlapMakesProgress(t *testing.T) {
	c, err := New(Options{ChunkSize: 1000, Overlap: 800})
	require.NoError(t, err)

	// The sentence break sits before cursor+overlap: stepping back by the
	// full overlap from there would move the cursor below zero.
	text := strings.Repeat("x", 600) + ". " + strings.Repeat("y", 1400)
	var chunks []string
	require.NotPanics(t, func() {
		chunks = c.Split(text)
	})
	require.NotEmpty(t, chunks)
	require.Equal(t, strings.Repeat("x", 600)+".", chunks[0])
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk), 1000)
		require.NotEmpty(t, chunk)
	}
}

func TestSplitShortText(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	require.Nil(t, c.Split(""))
	require.Nil(t, c.Split("   \n\t  "))
	require.Equal(t, []string{"hello world"}, c.Split("  hello world  "))
}

func TestSplitLongPlainText(t *testing.T) {
	c, err := New(Options{ChunkSize: 1000, Overlap: 200})
	require.NoError(t, err)

	text := strings.Repeat("a", 2400)
	chunks := c.Split(text)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 1000)
	require.Len(t, chunks[1], 1000)
	require.Len(t, chunks[2], 800)
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	c, err := New(Options{ChunkSize: 100, Overlap: 20})
	require.NoError(t, err)

	// One sentence ending well past the window midpoint, then filler.
	text := strings.Repeat("x", 80) + ". " + strings.Repeat("y", 200)
	chunks := c.Split(text)
	require.GreaterOrEqual(t, len(chunks), 2)
	require.Equal(t, strings.Repeat("x", 80)+".", chunks[0])
}

func TestSplitIgnoresEarlyBoundary(t *testing.T) {
	c, err := New(Options{ChunkSize: 100, Overlap: 20})
	require.NoError(t, err)

	// The only separator sits before the midpoint, so the hard cut wins.
	text := strings.Repeat("x", 30) + ". " + strings.Repeat("y", 300)
	chunks := c.Split(text)
	require.Len(t, chunks[0], 100)
}

func TestSplitSizeBound(t *testing.T) {
	c, err := New(Options{ChunkSize: 200, Overlap: 40})
	require.NoError(t, err)

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk), 200)
		require.NotEmpty(t, chunk)
		require.Equal(t, strings.TrimSpace(chunk), chunk)
	}
}

func TestSplitCoverage(t *testing.T) {
	c, err := New(Options{ChunkSize: 300, Overlap: 60})
	require.NoError(t, err)

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("Paragraph content with several words repeated for volume.\n\n")
	}
	text := sb.String()
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)

	// Every chunk must come from the source text.
	for _, chunk := range chunks {
		require.Contains(t, text, chunk)
	}
}

func TestSplitParagraphBoundaryBeatsSpace(t *testing.T) {
	c, err := New(Options{ChunkSize: 100, Overlap: 20})
	require.NoError(t, err)

	first := strings.Repeat("a", 35) + " " + strings.Repeat("b", 35)
	text := first + "\n\n" + strings.Repeat("c", 300)
	chunks := c.Split(text)
	require.Equal(t, first, chunks[0])
}
