package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"
)

const DefaultModel = "all-minilm"

// Config configures the Ollama embedder.
type Config struct {
	Model string
	// Device is "cpu" to keep the model off the GPU; anything else lets Ollama decide.
	Device    string
	KeepAlive time.Duration
}

// Embedder computes embeddings through a local Ollama server.
type Embedder struct {
	client    *api.Client
	model     string
	options   map[string]any
	keepAlive *api.Duration
	dimension atomic.Int64
}

// NewEmbedder wraps an Ollama API client, e.g. one from api.ClientFromEnvironment.
func NewEmbedder(client *api.Client, cfg Config) *Embedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	e := &Embedder{client: client, model: cfg.Model}
	if strings.EqualFold(cfg.Device, "cpu") {
		e.options = map[string]any{"num_gpu": 0}
	}
	if cfg.KeepAlive > 0 {
		e.keepAlive = &api.Duration{Duration: cfg.KeepAlive}
	}
	return e
}

func (e *Embedder) Name() string { return "ollama/" + e.model }

func (e *Embedder) Dimension() int { return int(e.dimension.Load()) }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

// EmbedBatch sends all texts in a single /api/embed call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model:     e.model,
		Input:     texts,
		KeepAlive: e.keepAlive,
		Options:   e.options,
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("ollama embed: status %d: %s", statusErr.StatusCode, statusErr.ErrorMessage)
		}
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	e.dimension.CompareAndSwap(0, int64(len(resp.Embeddings[0])))
	return resp.Embeddings, nil
}
