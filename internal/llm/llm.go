// Package llm holds what the chat model adapters share: the typed error they
// return and the mapping of that error onto the domain error taxonomy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"askpdf/internal/domain"
)

// StatusError is a non-2xx answer from a model provider.
type StatusError struct {
	Backend    string
	StatusCode int
	// Code is the provider's machine-readable error code or type, if any.
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Backend, e.StatusCode, msg)
}

// capacityCodes are provider error codes that mean "try again later".
var capacityCodes = []string{"rate_limit", "capacity_exceeded", "service_tier_capacity_exceeded", "overloaded"}

// Classify maps an adapter error onto the domain taxonomy. Context errors are
// returned unchanged so callers can tell cancellation from backend failure.
func Classify(backend string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return &domain.BackendError{Backend: backend, Err: err}
	}
	switch {
	case isCapacity(statusErr):
		return &domain.BackendCapacityError{Backend: backend, Err: err}
	case statusErr.StatusCode == http.StatusUnauthorized, statusErr.StatusCode == http.StatusForbidden:
		return &domain.BackendAuthError{Backend: backend, Err: err}
	default:
		return &domain.BackendError{Backend: backend, Err: err}
	}
}

func isCapacity(e *StatusError) bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
		return true
	}
	code := strings.ToLower(e.Code)
	for _, c := range capacityCodes {
		if code == c {
			return true
		}
	}
	return false
}
