package chunker

import (
	"strings"
	"unicode"

	"docrag/internal/domain"
)

const maxOverlapSentences = 3

// SentenceChunker splits documents into chunks on sentence boundaries,
// greedily packing sentences up to a character budget and carrying a
// configurable sentence overlap between adjacent chunks of the same source.
type SentenceChunker struct {
	chunkSize int
	overlap   int
}

// NewSentenceChunker creates a chunker with the given character budget and
// sentence overlap. Overlap is clamped to [0, 3].
func NewSentenceChunker(chunkSize, overlap int) *SentenceChunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > maxOverlapSentences {
		overlap = maxOverlapSentences
	}
	return &SentenceChunker{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Chunk splits each document into chunks. Empty or whitespace-only
// documents are dropped. A single sentence longer than the budget is
// emitted whole rather than split mid-sentence, so such a chunk may
// exceed the budget.
func (c *SentenceChunker) Chunk(docs []domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.chunkDocument(doc)...)
	}
	return chunks
}

func (c *SentenceChunker) chunkDocument(doc domain.Document) []domain.Chunk {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	var current []string
	currentLen := 0

	for _, sentence := range sentences {
		if currentLen+len(sentence) > c.chunkSize && len(current) > 0 {
			chunks = append(chunks, domain.NewChunk(strings.Join(current, " "), doc.Source))

			// Retain the trailing overlap sentences to seed the next chunk.
			keep := c.overlap
			if keep > len(current) {
				keep = len(current)
			}
			current = append([]string(nil), current[len(current)-keep:]...)
			currentLen = 0
			for _, s := range current {
				currentLen += len(s)
			}
		}
		current = append(current, sentence)
		currentLen += len(sentence)
	}

	if len(current) > 0 {
		chunks = append(chunks, domain.NewChunk(strings.Join(current, " "), doc.Source))
	}

	return chunks
}

// splitSentences divides text on terminal punctuation followed by
// whitespace. Trailing text without terminal punctuation is kept as a
// final sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		s := strings.TrimSpace(string(runes[start : i+1]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}

	if start < len(runes) {
		s := strings.TrimSpace(string(runes[start:]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}
