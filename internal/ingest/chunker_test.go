package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "simple sentences",
			in:   "First sentence. Second sentence! Third?",
			want: []string{"First sentence.", "Second sentence!", "Third?"},
		},
		{
			name: "newlines end sentences",
			in:   "heading without punctuation\nnext line",
			want: []string{"heading without punctuation", "next line"},
		},
		{
			name: "dots inside words survive",
			in:   "See pkg.go.dev for details. Done.",
			want: []string{"See pkg.go.dev for details.", "Done."},
		},
		{
			name: "no trailing punctuation",
			in:   "unterminated text",
			want: []string{"unterminated text"},
		},
		{
			name: "whitespace only",
			in:   "  \n\t ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, splitSentences(tt.in))
		})
	}
}

func TestChunker_Split_ShortText(t *testing.T) {
	t.Parallel()

	c := NewChunker(1000, 200)
	chunks := c.Split("A single short sentence.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A single short sentence.", chunks[0])
}

func TestChunker_Split_Empty(t *testing.T) {
	t.Parallel()

	c := NewChunker(1000, 200)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n  "))
}

func TestChunker_Split_RespectsBudgetAndOverlap(t *testing.T) {
	t.Parallel()

	// 40 sentences of ~27 runes each against a 100-rune budget forces many
	// chunks with sentence-aligned overlap.
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("This is test sentence here. ")
	}

	c := NewChunker(100, 30)
	chunks := c.Split(b.String())
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100)
	}

	// Consecutive chunks share their boundary sentence.
	for i := 1; i < len(chunks); i++ {
		assert.Contains(t, chunks[i], "This is test sentence here.")
		prevTail := chunks[i-1][strings.LastIndex(chunks[i-1], "This"):]
		assert.True(t, strings.HasPrefix(chunks[i], prevTail),
			"chunk %d should start with the previous chunk's last sentence", i)
	}
}

func TestChunker_Split_OversizedSentence(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 100) + "end."
	c := NewChunker(50, 10)

	chunks := c.Split("Short lead-in. " + long)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Short lead-in.", chunks[0])
	assert.Greater(t, utf8.RuneCountInString(chunks[1]), 50,
		"a sentence over budget becomes one oversized chunk")
}

func TestChunker_Split_TerminatesOnLargeOverlap(t *testing.T) {
	t.Parallel()

	// Overlap nearly as large as the budget must still make progress.
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("Sentence number with several words in it. ")
	}

	c := NewChunker(60, 55)
	chunks := c.Split(b.String())
	require.NotEmpty(t, chunks)
	assert.Less(t, len(chunks), 100, "chunk count should stay bounded")
}

func TestNewChunker_Fallbacks(t *testing.T) {
	t.Parallel()

	c := NewChunker(0, -1)
	assert.Equal(t, DefaultChunkSize, c.chunkSize)
	assert.Equal(t, DefaultChunkOverlap, c.overlap)

	// Overlap must stay below the chunk size.
	c = NewChunker(50, 60)
	assert.Equal(t, 50, c.chunkSize)
	assert.Less(t, c.overlap, c.chunkSize)
}
