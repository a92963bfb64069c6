// Package embedding holds helpers shared by the embedder backends.
package embedding

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"askpdf/internal/domain"
)

// Normalize scales v to unit L2 length in place. Zero vectors are left as is.
func Normalize(v []float32) []float32 {
	norm := 0.0
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range v {
			v[i] = float32(float64(v[i]) / norm)
		}
	}
	return v
}

// Normalized wraps an embedder so every vector it returns has unit length.
func Normalized(e domain.Embedder) domain.Embedder {
	return normalized{Embedder: e}
}

type normalized struct {
	domain.Embedder
}

func (n normalized) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := n.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return Normalize(v), nil
}

func (n normalized) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vs, err := n.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for _, v := range vs {
		Normalize(v)
	}
	return vs, nil
}

// BatchFunc embeds one batch; it must return one vector per input, in order.
type BatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Batch splits texts into batches of batchSize and runs up to workers batches
// concurrently. The result keeps the input order. The first error cancels the
// remaining batches and is returned.
func Batch(ctx context.Context, texts []string, batchSize, workers int, fn BatchFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	if workers <= 0 {
		workers = 1
	}
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vs, err := fn(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vs) != end-start {
				return &CountMismatchError{Want: end - start, Got: len(vs)}
			}
			copy(out[start:end], vs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountMismatchError reports a backend that returned the wrong number of vectors.
type CountMismatchError struct {
	Want, Got int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("embedding count mismatch: want %d, got %d", e.Want, e.Got)
}
