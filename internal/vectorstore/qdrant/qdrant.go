package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"askpdf/internal/domain"
	"askpdf/internal/vectorstore"
)

// Backend is a minimal REST client to Qdrant.
// Every Build creates its own collection with cosine distance, so an index
// is never changed after it has been handed out.
type Backend struct {
	url    string
	apiKey string
	prefix string
	batch  int
	client *http.Client
	logger *zap.Logger
}

type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	UpsertBatch      int
	Timeout          time.Duration
}

func NewBackend(cfg Config, logger *zap.Logger) *Backend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "askpdf"
	}
	batch := cfg.UpsertBatch
	if batch <= 0 {
		batch = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		prefix: prefix,
		batch:  batch,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Build creates a fresh collection and uploads all points into it.
// On failure the collection is dropped again.
func (b *Backend) Build(ctx context.Context, passages []domain.Passage, vectors [][]float32) (domain.VectorIndex, error) {
	if len(passages) != len(vectors) {
		return nil, errors.New("passages and vectors length mismatch")
	}
	if err := vectorstore.CheckDimensions(vectors); err != nil {
		return nil, err
	}
	idx := &Index{backend: b, collection: b.prefix + "-" + uuid.NewString(), size: len(passages)}
	if len(vectors) == 0 {
		// nothing to store; searches short-circuit on size
		return idx, nil
	}
	idx.dimension = len(vectors[0])

	body := map[string]any{
		"vectors": map[string]any{
			"size":     idx.dimension,
			"distance": "Cosine",
		},
	}
	if err := b.do(ctx, http.MethodPut, b.collectionURL(idx.collection), body, nil); err != nil {
		return nil, err
	}
	idx.created = true
	for start := 0; start < len(passages); start += b.batch {
		end := min(start+b.batch, len(passages))
		points := make([]map[string]any, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, map[string]any{
				"id":     i,
				"vector": vectors[i],
				"payload": map[string]any{
					"index": passages[i].Index,
					"text":  passages[i].Text,
				},
			})
		}
		url := b.collectionURL(idx.collection) + "/points?wait=true"
		if err := b.do(ctx, http.MethodPut, url, map[string]any{"points": points}, nil); err != nil {
			_ = idx.Close(context.WithoutCancel(ctx))
			return nil, err
		}
	}
	b.logger.Info("qdrant collection built",
		zap.String("collection", idx.collection),
		zap.Int("points", len(passages)),
		zap.Int("dimension", idx.dimension))
	return idx, nil
}

func (b *Backend) collectionURL(name string) string {
	return fmt.Sprintf("%s/collections/%s", b.url, name)
}

// candidateFactor scales the search limit so equal scores around the k-th
// result can be re-ranked by passage order.
const candidateFactor = 2

// Index is one Qdrant collection.
type Index struct {
	backend    *Backend
	collection string
	dimension  int
	size       int
	created    bool
}

func (s *Index) Len() int           { return s.size }
func (s *Index) Dimension() int     { return s.dimension }
func (s *Index) Collection() string { return s.collection }

func (s *Index) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if s.size == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", vectorstore.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK * candidateFactor,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Index int    `json:"index"`
				Text  string `json:"text"`
			} `json:"payload"`
		} `json:"result"`
	}
	url := s.backend.collectionURL(s.collection) + "/points/search"
	if err := s.backend.do(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Passage: domain.Passage{Index: r.Payload.Index, Text: r.Payload.Text},
			Score:   r.Score,
		})
	}
	// Qdrant does not promise an order for equal scores, so extra candidates
	// are fetched and ties at the cut go to the earlier passage.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Passage.Index < results[j].Passage.Index
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Close drops the collection.
func (s *Index) Close(ctx context.Context) error {
	if !s.created {
		return nil
	}
	if err := s.backend.do(ctx, http.MethodDelete, s.backend.collectionURL(s.collection), nil, nil); err != nil {
		return err
	}
	s.created = false
	return nil
}

func (b *Backend) do(ctx context.Context, method, url string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal qdrant request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return fmt.Errorf("build qdrant request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
