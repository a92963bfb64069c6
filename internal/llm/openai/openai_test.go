package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askpdf/internal/domain"
	"askpdf/internal/llm"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	t.Setenv("TEST_LLM_KEY", "test-key")
	c, err := NewClient(Config{BaseURL: server.URL, APIKeyEnv: "TEST_LLM_KEY", Temperature: DefaultTemperature}, nil)
	require.NoError(t, err)
	return c
}

func TestComplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.Equal(t, DefaultTemperature, req.Temperature)
		assert.False(t, req.Stream)
		assert.Equal(t, []chatMessage{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
		}, req.Messages)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Alpha \n"}}]}`))
	})

	reply, err := c.Complete(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "be brief"},
		{Role: domain.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", reply)
	assert.Equal(t, DefaultModel, c.Name())
}

func TestCompleteReturnsStatusError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode string
		category domain.Category
	}{
		{
			name:     "mistral capacity",
			status:   http.StatusTooManyRequests,
			body:     `{"object":"error","message":"Service tier capacity exceeded for this model.","type":"service_tier_capacity_exceeded","code":"3505"}`,
			wantMsg:  "Service tier capacity exceeded for this model.",
			wantCode: "3505",
			category: domain.CategoryCapacity,
		},
		{
			name:     "openai auth",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			wantMsg:  "Incorrect API key provided",
			wantCode: "invalid_api_key",
			category: domain.CategoryAuth,
		},
		{
			name:     "plain text",
			status:   http.StatusBadGateway,
			body:     "upstream timed out",
			wantMsg:  "upstream timed out",
			category: domain.CategoryGeneric,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})

			var statusErr *llm.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantMsg, statusErr.Message)
			assert.Equal(t, tt.wantCode, statusErr.Code)
			assert.Equal(t, tt.category, domain.Categorize(llm.Classify(c.Name(), err)))
		})
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := c.Complete(context.Background(), nil)
	assert.ErrorContains(t, err, "empty llm choices")
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "TEST_LLM_KEY"}, nil)
	assert.ErrorContains(t, err, "TEST_LLM_KEY")
}
