package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotReady      = errors.New("no documents have been processed yet")
	ErrNoDocuments   = errors.New("no documents to process")
	ErrEmptyQuestion = errors.New("question is empty")
)

// DocumentReadError reports a document that could not be read at all.
type DocumentReadError struct {
	Document string
	Err      error
}

func (e *DocumentReadError) Error() string {
	return fmt.Sprintf("read document %q: %v", e.Document, e.Err)
}

func (e *DocumentReadError) Unwrap() error { return e.Err }

// EmbeddingBackendError aborts an index build.
type EmbeddingBackendError struct {
	Backend string
	Err     error
}

func (e *EmbeddingBackendError) Error() string {
	return fmt.Sprintf("embedding backend %s: %v", e.Backend, e.Err)
}

func (e *EmbeddingBackendError) Unwrap() error { return e.Err }

// BackendCapacityError means the language model rejected the call for rate or capacity reasons.
type BackendCapacityError struct {
	Backend string
	Err     error
}

func (e *BackendCapacityError) Error() string {
	return fmt.Sprintf("%s capacity exceeded: %v", e.Backend, e.Err)
}

func (e *BackendCapacityError) Unwrap() error { return e.Err }

// BackendAuthError means the language model rejected the credentials.
type BackendAuthError struct {
	Backend string
	Err     error
}

func (e *BackendAuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Backend, e.Err)
}

func (e *BackendAuthError) Unwrap() error { return e.Err }

// BackendError is any other language model failure.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Category groups errors by the action a user can take about them.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryCapacity
	CategoryAuth
	CategoryNotReady
	CategoryDocument
	CategoryEmbedding
	CategoryCanceled
)

func (c Category) String() string {
	switch c {
	case CategoryCapacity:
		return "capacity"
	case CategoryAuth:
		return "auth"
	case CategoryNotReady:
		return "not-ready"
	case CategoryDocument:
		return "document"
	case CategoryEmbedding:
		return "embedding"
	case CategoryCanceled:
		return "canceled"
	default:
		return "generic"
	}
}

// Hint is the user-facing advice for the category.
func (c Category) Hint() string {
	switch c {
	case CategoryCapacity:
		return "The model is at capacity. Wait a few minutes and try again."
	case CategoryAuth:
		return "Authentication failed. Check the API key in your .env file."
	case CategoryNotReady:
		return "Process your PDFs first (ctrl+r)."
	case CategoryDocument:
		return "A document could not be read. Check that it is a valid PDF."
	case CategoryEmbedding:
		return "The embedding backend is unavailable. Check that it is running and try again."
	case CategoryCanceled:
		return "The request was canceled."
	default:
		return "Something went wrong. Try again or check your connection."
	}
}

// Categorize finds the most specific category in err's chain.
func Categorize(err error) Category {
	var (
		capErr  *BackendCapacityError
		authErr *BackendAuthError
		docErr  *DocumentReadError
		embErr  *EmbeddingBackendError
	)
	switch {
	case err == nil:
		return CategoryGeneric
	case errors.Is(err, ErrNotReady):
		return CategoryNotReady
	case errors.As(err, &capErr):
		return CategoryCapacity
	case errors.As(err, &authErr):
		return CategoryAuth
	case errors.As(err, &docErr), errors.Is(err, ErrNoDocuments):
		return CategoryDocument
	case errors.As(err, &embErr):
		return CategoryEmbedding
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryCanceled
	default:
		return CategoryGeneric
	}
}
