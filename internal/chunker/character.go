package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"askpdf/internal/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultSeparator    = "\n"
)

// CharacterSplitter splits text on a literal separator and merges the pieces
// into passages of at most chunkSize runes. Trailing pieces of up to
// chunkOverlap runes are repeated at the start of the next passage.
// A single piece longer than chunkSize becomes its own passage.
type CharacterSplitter struct {
	chunkSize    int
	chunkOverlap int
	separator    string
}

func NewCharacterSplitter(chunkSize, chunkOverlap int, separator string) (*CharacterSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", chunkOverlap)
	}
	if chunkOverlap > chunkSize {
		return nil, fmt.Errorf("chunk overlap %d is larger than chunk size %d", chunkOverlap, chunkSize)
	}
	return &CharacterSplitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap, separator: separator}, nil
}

func (c *CharacterSplitter) Chunk(text string) ([]domain.Passage, error) {
	return toPassages(c.merge(c.split(text))), nil
}

func (c *CharacterSplitter) split(text string) []string {
	parts := strings.Split(text, c.separator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *CharacterSplitter) merge(splits []string) []string {
	sepLen := utf8.RuneCountInString(c.separator)
	var (
		out     []string
		current []string
		lengths []int
		total   int
	)
	// joined length of current plus one more piece of length n
	grown := func(n int) int {
		if len(current) > 0 {
			return total + n + sepLen
		}
		return total + n
	}
	for _, s := range splits {
		n := utf8.RuneCountInString(s)
		if grown(n) > c.chunkSize && len(current) > 0 {
			if doc := c.join(current); doc != "" {
				out = append(out, doc)
			}
			for total > c.chunkOverlap || (total > 0 && grown(n) > c.chunkSize) {
				total -= lengths[0]
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
				lengths = lengths[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, s)
		lengths = append(lengths, n)
		total += n
	}
	if doc := c.join(current); doc != "" {
		out = append(out, doc)
	}
	return out
}

func (c *CharacterSplitter) join(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, c.separator))
}

func toPassages(texts []string) []domain.Passage {
	passages := make([]domain.Passage, 0, len(texts))
	for i, t := range texts {
		passages = append(passages, domain.Passage{Index: i, Text: t})
	}
	return passages
}
