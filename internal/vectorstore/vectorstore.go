// Package vectorstore builds searchable passage indexes.
package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"askpdf/internal/domain"
	"askpdf/internal/embedding"
)

// DefaultTopK is the number of passages returned when a query asks for k <= 0.
const DefaultTopK = 4

// ErrDimensionMismatch is returned for vectors whose length differs from the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// BuildOptions tunes the embedding step of Build.
type BuildOptions struct {
	BatchSize int
	Workers   int
}

// Build embeds every passage and hands the complete set to backend.
// Nothing is built unless every passage was embedded, so a failure never
// leaves a partial index behind. Embedding failures are reported as
// *domain.EmbeddingBackendError unless ctx ended, in which case ctx.Err()
// is returned.
func Build(ctx context.Context, emb domain.Embedder, backend domain.VectorBackend, passages []domain.Passage, opts BuildOptions) (domain.VectorIndex, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	vectors, err := embedding.Batch(ctx, texts, opts.BatchSize, opts.Workers, emb.EmbedBatch)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.EmbeddingBackendError{Backend: emb.Name(), Err: err}
	}
	if err := CheckDimensions(vectors); err != nil {
		return nil, &domain.EmbeddingBackendError{Backend: emb.Name(), Err: err}
	}
	idx, err := backend.Build(ctx, passages, vectors)
	if err != nil {
		return nil, fmt.Errorf("build vector index: %w", err)
	}
	return idx, nil
}

// CheckDimensions verifies all vectors share one non-zero dimension.
func CheckDimensions(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return errors.New("empty embedding vector")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}
