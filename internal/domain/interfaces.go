package domain

import "context"

// Document is one uploaded file: a name plus its raw bytes.
type Document struct {
	Name string
	Data []byte
}

// Size reports the document size in bytes.
func (d Document) Size() int64 { return int64(len(d.Data)) }

// Passage is a bounded segment of the corpus text, the unit of embedding and retrieval.
type Passage struct {
	Index int
	Text  string
}

// SearchResult represents a matching passage with its similarity score.
type SearchResult struct {
	Passage Passage
	Score   float64
}

// Message is one entry of a prompt sent to a chat model.
type Message struct {
	Role    Role
	Content string
}

// Extractor turns a batch of documents into one concatenated text.
type Extractor interface {
	Extract(ctx context.Context, docs []Document) (string, error)
}

// Chunker splits corpus text into ordered passages.
type Chunker interface {
	Chunk(text string) ([]Passage, error)
}

// Embedder converts free text into a numeric vector representation.
// Dimension may be zero until the first vector has been produced.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorBackend builds immutable indexes from passages and their vectors.
type VectorBackend interface {
	Build(ctx context.Context, passages []Passage, vectors [][]float32) (VectorIndex, error)
}

// VectorIndex answers nearest-neighbour queries over a fixed set of passages.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error)
	Len() int
	Dimension() int
	Close(ctx context.Context) error
}

// ChatModel completes a conversation with a language model.
type ChatModel interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
