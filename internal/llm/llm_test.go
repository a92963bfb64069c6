package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"askpdf/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.Category
	}{
		{"rate limited", &StatusError{StatusCode: http.StatusTooManyRequests}, domain.CategoryCapacity},
		{"unavailable", &StatusError{StatusCode: http.StatusServiceUnavailable}, domain.CategoryCapacity},
		{"overloaded", &StatusError{StatusCode: 529}, domain.CategoryCapacity},
		{"capacity code on 400", &StatusError{StatusCode: 400, Code: "service_tier_capacity_exceeded"}, domain.CategoryCapacity},
		{"unauthorized", &StatusError{StatusCode: http.StatusUnauthorized}, domain.CategoryAuth},
		{"forbidden", fmt.Errorf("call: %w", &StatusError{StatusCode: http.StatusForbidden}), domain.CategoryAuth},
		{"server error", &StatusError{StatusCode: http.StatusInternalServerError}, domain.CategoryGeneric},
		{"transport", errors.New("connection reset"), domain.CategoryGeneric},
		{"canceled", context.Canceled, domain.CategoryCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("mistral", tt.err)
			assert.Equal(t, tt.want, domain.Categorize(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyGenericIsBackendError(t *testing.T) {
	var backendErr *domain.BackendError
	assert.ErrorAs(t, Classify("mistral", errors.New("boom")), &backendErr)
	assert.Equal(t, "mistral", backendErr.Backend)
	assert.Nil(t, Classify("mistral", nil))
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Backend: "open-mistral-7b", StatusCode: 401}
	assert.Equal(t, "open-mistral-7b: status 401: Unauthorized", err.Error())
}
