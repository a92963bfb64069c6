package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"askpdf/internal/domain"
	"askpdf/internal/vectorstore"
)

// Backend builds in-memory indexes.
type Backend struct{}

func NewBackend() *Backend { return &Backend{} }

// Build copies passages and vectors into a new immutable index.
func (b *Backend) Build(_ context.Context, passages []domain.Passage, vectors [][]float32) (domain.VectorIndex, error) {
	if len(passages) != len(vectors) {
		return nil, errors.New("passages and vectors length mismatch")
	}
	if err := vectorstore.CheckDimensions(vectors); err != nil {
		return nil, err
	}
	idx := &Index{
		passages: make([]domain.Passage, len(passages)),
		vectors:  make([][]float32, len(vectors)),
	}
	copy(idx.passages, passages)
	for i, v := range vectors {
		idx.vectors[i] = append([]float32(nil), v...)
	}
	if len(vectors) > 0 {
		idx.dimension = len(vectors[0])
	}
	return idx, nil
}

// Index is a brute-force cosine similarity index over L2-normalized vectors.
// It is never modified after Build, so concurrent searches are safe.
type Index struct {
	dimension int
	vectors   [][]float32
	passages  []domain.Passage
}

func (s *Index) Len() int       { return len(s.passages) }
func (s *Index) Dimension() int { return s.dimension }

func (s *Index) Close(context.Context) error { return nil }

// Search returns the k passages most similar to vector, best first.
// Equal scores keep insertion order.
func (s *Index) Search(_ context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if len(s.passages) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", vectorstore.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		scores[i] = dot(s.vectors[i], vector)
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	topK = min(topK, len(idxs))
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Passage: s.passages[j], Score: scores[j]})
	}
	return results, nil
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
