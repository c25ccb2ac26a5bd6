package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the target chunk length in runes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of overlapping runes between
	// consecutive chunks.
	DefaultChunkOverlap = 200
)

// Chunker splits document text into sentence-aligned chunks with overlap.
// Chunks stay under chunkSize runes unless a single sentence exceeds it, in
// which case that sentence becomes its own oversized chunk rather than being
// cut mid-word.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker returns a Chunker with the given rune budget and overlap.
// Out-of-range values fall back to the defaults.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split breaks text into chunks. Whitespace-only text yields no chunks.
func (c *Chunker) Split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	start := 0

	for start < len(sentences) {
		var buf strings.Builder
		runes := 0
		end := start

		for end < len(sentences) {
			n := utf8.RuneCountInString(sentences[end])
			if runes+n > c.chunkSize && runes > 0 {
				break
			}
			if buf.Len() > 0 {
				buf.WriteByte(' ')
				runes++
			}
			buf.WriteString(sentences[end])
			runes += n
			end++
		}

		chunks = append(chunks, buf.String())

		if end == len(sentences) {
			break
		}

		// Walk back over trailing sentences until the overlap budget is
		// spent, then resume from there.
		overlapRunes := 0
		newStart := end
		for newStart > start && overlapRunes < c.overlap {
			next := overlapRunes + utf8.RuneCountInString(sentences[newStart-1])
			if next > c.overlap && overlapRunes > 0 {
				break
			}
			newStart--
			overlapRunes = next
		}
		if newStart <= start {
			// Forward progress even when a single sentence eats the
			// whole overlap budget.
			newStart = end
		}
		start = newStart
	}

	return chunks
}

// splitSentences splits text on sentence-ending punctuation and newlines.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			atEnd := i == len(runes)-1
			if r == '\n' || atEnd || unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
