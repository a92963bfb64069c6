// Package session owns the index, engine and history of one user session.
package session

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"askpdf/internal/conversation"
	"askpdf/internal/domain"
	"askpdf/internal/extractor"
	"askpdf/internal/vectorstore"
)

// Deps are the capabilities a session runs its pipeline with.
// Summarizer is optional.
type Deps struct {
	Extractor  domain.Extractor
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	Backend    domain.VectorBackend
	Model      domain.ChatModel
	Summarizer domain.Summarizer
}

// Report describes a successful Process call.
type Report struct {
	Stats     extractor.Stats
	Passages  int
	Dimension int
	Summary   string
	Elapsed   time.Duration
}

type Option func(*Session)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

func WithEngineConfig(cfg conversation.Config) Option {
	return func(s *Session) { s.engineCfg = cfg }
}

func WithBuildOptions(opts vectorstore.BuildOptions) Option {
	return func(s *Session) { s.buildOpts = opts }
}

// WithSummarySentences sets the summary length; zero disables the summary.
func WithSummarySentences(n int) Option {
	return func(s *Session) { s.summarySentences = n }
}

type statsExtractor interface {
	ExtractStats(ctx context.Context, docs []domain.Document) (string, extractor.Stats, error)
}

// Session is not safe for concurrent use; callers serialize Process and Ask.
type Session struct {
	deps             Deps
	engineCfg        conversation.Config
	buildOpts        vectorstore.BuildOptions
	summarySentences int
	logger           *zap.Logger

	index  domain.VectorIndex
	engine *conversation.Engine
	report *Report
}

func New(deps Deps, opts ...Option) *Session {
	s := &Session{deps: deps, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Ready reports whether a Process call has succeeded.
func (s *Session) Ready() bool { return s.engine != nil }

// Report returns the report of the last successful Process, or nil.
func (s *Session) Report() *Report { return s.report }

// Process runs extract, chunk and index build over docs and starts a new
// conversation on the result. On failure the previous state is kept.
func (s *Session) Process(ctx context.Context, docs []domain.Document) (*Report, error) {
	if len(docs) == 0 {
		return nil, domain.ErrNoDocuments
	}
	start := time.Now()

	text, stats, err := s.extract(ctx, docs)
	if err != nil {
		return nil, err
	}
	passages, err := s.deps.Chunker.Chunk(text)
	if err != nil {
		return nil, fmt.Errorf("chunk text: %w", err)
	}
	index, err := vectorstore.Build(ctx, s.deps.Embedder, s.deps.Backend, passages, s.buildOpts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		s.closeIndex(index)
		return nil, err
	}

	report := &Report{
		Stats:     stats,
		Passages:  len(passages),
		Dimension: index.Dimension(),
		Summary:   s.summarize(text),
	}

	previous := s.index
	s.index = index
	s.engine = conversation.NewEngine(s.deps.Embedder, index, s.deps.Model, domain.NewHistory(), s.engineCfg, s.logger)
	if previous != nil {
		s.closeIndex(previous)
	}
	report.Elapsed = time.Since(start)
	s.report = report

	s.logger.Info("documents processed",
		zap.Int("documents", len(docs)),
		zap.Int("passages", report.Passages),
		zap.Int("dimension", report.Dimension),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

// Ask answers question and returns the conversation including the new turns.
// Before the first successful Process it fails with domain.ErrNotReady and
// contacts no backend.
func (s *Session) Ask(ctx context.Context, question string) (conversation.Answer, []domain.Turn, error) {
	if s.engine == nil {
		return conversation.Answer{}, nil, domain.ErrNotReady
	}
	ans, err := s.engine.Ask(ctx, question)
	if err != nil {
		return conversation.Answer{}, s.engine.History(), err
	}
	return ans, s.engine.History(), nil
}

// History returns the current conversation; empty when not ready.
func (s *Session) History() []domain.Turn {
	if s.engine == nil {
		return []domain.Turn{}
	}
	return s.engine.History()
}

// Close releases the index and returns the session to not ready.
func (s *Session) Close(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	err := s.index.Close(ctx)
	s.index, s.engine, s.report = nil, nil, nil
	return err
}

func (s *Session) extract(ctx context.Context, docs []domain.Document) (string, extractor.Stats, error) {
	if se, ok := s.deps.Extractor.(statsExtractor); ok {
		return se.ExtractStats(ctx, docs)
	}
	text, err := s.deps.Extractor.Extract(ctx, docs)
	if err != nil {
		return "", extractor.Stats{}, err
	}
	return text, extractor.Stats{Documents: len(docs), Characters: utf8.RuneCountInString(text)}, nil
}

func (s *Session) summarize(text string) string {
	if s.deps.Summarizer == nil || s.summarySentences <= 0 || text == "" {
		return ""
	}
	summary, err := s.deps.Summarizer.Summarize(text, s.summarySentences)
	if err != nil {
		s.logger.Warn("summary failed", zap.Error(err))
		return ""
	}
	return summary
}

func (s *Session) closeIndex(index domain.VectorIndex) {
	if err := index.Close(context.Background()); err != nil {
		s.logger.Warn("close vector index", zap.Error(err))
	}
}
