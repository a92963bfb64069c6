package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"

	"askpdf/internal/domain"
	"askpdf/internal/llm"
)

// Config configures the Ollama chat model.
type Config struct {
	Model       string
	Temperature float64
}

// Client completes conversations with a model served by Ollama.
type Client struct {
	client      *api.Client
	model       string
	temperature float64
}

func NewClient(client *api.Client, cfg Config) *Client {
	return &Client{client: client, model: cfg.Model, temperature: cfg.Temperature}
}

func (c *Client) Name() string { return "ollama/" + c.model }

// Complete runs a non-streaming chat request.
func (c *Client) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	msgs := make([]api.Message, len(messages))
	for i, m := range messages {
		msgs[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": c.temperature},
	}
	var reply strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", &llm.StatusError{
				Backend:    c.Name(),
				StatusCode: statusErr.StatusCode,
				Message:    statusErr.ErrorMessage,
			}
		}
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return strings.TrimSpace(reply.String()), nil
}
