// Package conversation answers questions against one vector index while
// keeping the chat history of a single session.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"askpdf/internal/domain"
	"askpdf/internal/llm"
	"askpdf/internal/vectorstore"
)

type Config struct {
	TopK int
	// CondenseQuestion rewrites follow-ups into standalone questions before retrieval.
	CondenseQuestion bool
	SystemPrompt     string
}

// Answer is a reply plus the passages it was grounded on.
type Answer struct {
	Reply   string
	Sources []domain.SearchResult
}

// Engine is bound to one index and one history for its whole life.
type Engine struct {
	embedder domain.Embedder
	index    domain.VectorIndex
	model    domain.ChatModel
	history  *domain.History
	cfg      Config
	logger   *zap.Logger
}

func NewEngine(embedder domain.Embedder, index domain.VectorIndex, model domain.ChatModel, history *domain.History, cfg Config, logger *zap.Logger) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = vectorstore.DefaultTopK
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if history == nil {
		history = domain.NewHistory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		embedder: embedder,
		index:    index,
		model:    model,
		history:  history,
		cfg:      cfg,
		logger:   logger,
	}
}

// Ask answers one question. The history gains the question and the reply
// together, and only when the whole call succeeded.
func (e *Engine) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, domain.ErrEmptyQuestion
	}
	start := time.Now()
	turns := e.history.Turns()

	query := question
	if e.cfg.CondenseQuestion && len(turns) > 0 {
		standalone, err := e.complete(ctx, condenseMessages(turns, question))
		if err != nil {
			return Answer{}, err
		}
		if s := strings.TrimSpace(standalone); s != "" {
			query = s
		}
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Answer{}, ctxErr
		}
		return Answer{}, &domain.EmbeddingBackendError{Backend: e.embedder.Name(), Err: err}
	}
	sources, err := e.index.Search(ctx, vector, e.cfg.TopK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve passages: %w", err)
	}

	reply, err := e.complete(ctx, buildMessages(e.cfg.SystemPrompt, sources, turns, question))
	if err != nil {
		return Answer{}, err
	}
	// the caller gave up while the model was answering
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}
	e.history.Append(question, reply)

	e.logger.Info("question answered",
		zap.String("model", e.model.Name()),
		zap.Int("sources", len(sources)),
		zap.Int("history", e.history.Len()),
		zap.Bool("condensed", query != question),
		zap.Duration("elapsed", time.Since(start)))
	return Answer{Reply: reply, Sources: sources}, nil
}

func (e *Engine) complete(ctx context.Context, msgs []domain.Message) (string, error) {
	reply, err := e.model.Complete(ctx, msgs)
	if err != nil {
		classified := llm.Classify(e.model.Name(), err)
		if !errors.Is(classified, context.Canceled) && !errors.Is(classified, context.DeadlineExceeded) {
			e.logger.Warn("model call failed",
				zap.String("model", e.model.Name()),
				zap.Stringer("category", domain.Categorize(classified)),
				zap.Error(err))
		}
		return "", classified
	}
	return reply, nil
}

// History returns a copy of the conversation so far.
func (e *Engine) History() []domain.Turn { return e.history.Turns() }
