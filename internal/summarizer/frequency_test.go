package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizePicksFrequentSentencesInOrder(t *testing.T) {
	text := "Qdrant stores vectors. The weather was mild.\nVectors are compared by cosine similarity. " +
		"Qdrant searches vectors quickly! Lunch was late"
	got, err := NewFrequency().Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Qdrant stores vectors. Qdrant searches vectors quickly!", got)
}

func TestSummarizeShortText(t *testing.T) {
	got, err := NewFrequency().Summarize("One sentence only.", 5)
	require.NoError(t, err)
	assert.Equal(t, "One sentence only.", got)
}

func TestSummarizeEmpty(t *testing.T) {
	got, err := NewFrequency().Summarize(" \n\t", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummarizeDefaultsMaxSentences(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma. ", 10)
	got, err := NewFrequency().Summarize(text, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSentences, strings.Count(got, "."))
}
