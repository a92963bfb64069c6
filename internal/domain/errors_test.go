package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"not ready", ErrNotReady, CategoryNotReady},
		{"wrapped not ready", fmt.Errorf("ask: %w", ErrNotReady), CategoryNotReady},
		{"capacity", &BackendCapacityError{Backend: "mistral", Err: cause}, CategoryCapacity},
		{"auth", fmt.Errorf("ask: %w", &BackendAuthError{Backend: "mistral", Err: cause}), CategoryAuth},
		{"generic backend", &BackendError{Backend: "mistral", Err: cause}, CategoryGeneric},
		{"document", &DocumentReadError{Document: "a.pdf", Err: cause}, CategoryDocument},
		{"joined documents", errors.Join(&DocumentReadError{Document: "a.pdf", Err: cause}), CategoryDocument},
		{"no documents", ErrNoDocuments, CategoryDocument},
		{"embedding", &EmbeddingBackendError{Backend: "ollama", Err: cause}, CategoryEmbedding},
		{"canceled", context.Canceled, CategoryCanceled},
		{"deadline", fmt.Errorf("ask: %w", context.DeadlineExceeded), CategoryCanceled},
		{"plain", cause, CategoryGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.err))
		})
	}
}

func TestCategoryHintsAreDistinct(t *testing.T) {
	seen := map[string]Category{}
	for c := CategoryGeneric; c <= CategoryCanceled; c++ {
		hint := c.Hint()
		assert.NotEmpty(t, hint)
		prev, dup := seen[hint]
		assert.False(t, dup, "%s and %s share a hint", c, prev)
		seen[hint] = c
	}
}

func TestDocumentReadErrorNamesDocument(t *testing.T) {
	err := &DocumentReadError{Document: "report.pdf", Err: errors.New("malformed PDF")}
	assert.Contains(t, err.Error(), "report.pdf")
	assert.ErrorContains(t, err, "malformed PDF")
}

func TestHistoryAppendsPairs(t *testing.T) {
	h := NewHistory()
	assert.Equal(t, 0, h.Len())

	h.Append("What is in the document?", "Alpha")
	h.Append("And then?", "Beta")

	turns := h.Turns()
	assert.Equal(t, []Turn{
		{Role: RoleUser, Content: "What is in the document?"},
		{Role: RoleAssistant, Content: "Alpha"},
		{Role: RoleUser, Content: "And then?"},
		{Role: RoleAssistant, Content: "Beta"},
	}, turns)

	turns[0].Content = "mutated"
	assert.Equal(t, "What is in the document?", h.Turns()[0].Content)
}
