package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"askpdf/internal/chunker"
	"askpdf/internal/config"
	"askpdf/internal/conversation"
	"askpdf/internal/document"
	"askpdf/internal/domain"
	"askpdf/internal/embedding"
	"askpdf/internal/embedding/hashing"
	ollamaemb "askpdf/internal/embedding/ollama"
	openaiemb "askpdf/internal/embedding/openai"
	"askpdf/internal/extractor"
	"askpdf/internal/logging"
	ollamallm "askpdf/internal/llm/ollama"
	openaillm "askpdf/internal/llm/openai"
	"askpdf/internal/session"
	"askpdf/internal/summarizer"
	"askpdf/internal/tui"
	"askpdf/internal/vectorstore"
	"askpdf/internal/vectorstore/memory"
	"askpdf/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath, question string
		watch             bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/askpdf/config.yaml if not provided)")
	flag.StringVar(&question, "question", "", "Answer one question and exit instead of starting the chat")
	flag.BoolVar(&watch, "watch", false, "Process the documents again when they change on disk")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: askpdf [--config=config.yaml] [--question=\"...\"] file1.pdf [file2.pdf ...]")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fatal("failed to set up logging: %v", err)
	}
	defer logger.Sync()

	sess, err := newSession(cfg, logger)
	if err != nil {
		logger.Error("component setup failed", zap.Error(err))
		fatal("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	closeSession := func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("close session", zap.Error(err))
		}
	}
	defer closeSession()

	loader := document.NewLoader(cfg.Documents.MaxFileMB)
	load := func() ([]domain.Document, error) { return loader.Load(inputs) }

	if question != "" {
		if err := answerOnce(ctx, sess, load, question); err != nil {
			logger.Error("question failed", zap.Error(err))
			cat := domain.Categorize(err)
			fmt.Fprintf(os.Stderr, "%s\n%v\n", cat.Hint(), err)
			closeSession()
			stop()
			os.Exit(1)
		}
		return
	}

	var changes <-chan struct{}
	if watch || cfg.Documents.Watch {
		w, err := document.NewWatcher(inputs, document.DefaultDebounce, logger.Named("watch"))
		if err != nil {
			closeSession()
			fatal("failed to watch documents: %v", err)
		}
		defer w.Close()
		changes = w.Changes(ctx)
	}

	m := tui.New(ctx, sess, load, changes)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	// A job may still be running after the program quits.
	m.Stop()
	if err != nil {
		logger.Error("tui stopped", zap.Error(err))
		closeSession()
		fatal("%v", err)
	}
}

func answerOnce(ctx context.Context, sess *session.Session, load tui.LoadFunc, question string) error {
	docs, err := load()
	if err != nil {
		return err
	}
	if _, err := sess.Process(ctx, docs); err != nil {
		return err
	}
	ans, _, err := sess.Ask(ctx, question)
	if err != nil {
		return err
	}
	fmt.Println(ans.Reply)
	return nil
}

func newSession(cfg *config.AppConfig, logger *zap.Logger) (*session.Session, error) {
	ch, err := newChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	emb, err := newEmbedder(cfg.Embedder, logger)
	if err != nil {
		return nil, err
	}
	backend, err := newBackend(cfg.VectorStore, logger)
	if err != nil {
		return nil, err
	}
	model, err := newChatModel(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequency()
	case "none":
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	deps := session.Deps{
		Extractor:  extractor.NewPDF(logger.Named("extractor")),
		Chunker:    ch,
		Embedder:   emb,
		Backend:    backend,
		Model:      model,
		Summarizer: sum,
	}
	return session.New(deps,
		session.WithLogger(logger.Named("session")),
		session.WithEngineConfig(conversation.Config{
			TopK:             cfg.Retrieval.TopK,
			CondenseQuestion: cfg.Retrieval.CondenseQuestion,
			SystemPrompt:     cfg.LLM.SystemPrompt,
		}),
		session.WithBuildOptions(vectorstore.BuildOptions{
			BatchSize: cfg.Embedder.BatchSize,
			Workers:   cfg.Embedder.Workers,
		}),
		session.WithSummarySentences(cfg.Summarizer.MaxSentences),
	), nil
}

func newChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "character", "":
		return chunker.NewCharacterSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Separator)
	case "sentence":
		return chunker.NewSentenceSplitter(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

func newEmbedder(cfg config.EmbedderConfig, logger *zap.Logger) (domain.Embedder, error) {
	var emb domain.Embedder
	switch cfg.Type {
	case "ollama", "":
		client, err := ollamaClient(cfg.Ollama.BaseURL)
		if err != nil {
			return nil, err
		}
		var keepAlive time.Duration
		if cfg.Ollama.KeepAlive != "" {
			if keepAlive, err = time.ParseDuration(cfg.Ollama.KeepAlive); err != nil {
				return nil, fmt.Errorf("embedder.ollama.keep_alive: %w", err)
			}
		}
		emb = ollamaemb.NewEmbedder(client, ollamaemb.Config{
			Model:     cfg.Ollama.Model,
			Device:    cfg.Ollama.Device,
			KeepAlive: keepAlive,
		})
	case "openai":
		client, err := openaiemb.NewClient(openaiemb.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.OpenAI.MaxRetries,
		}, logger.Named("embedder"))
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	case "hashing":
		emb = hashing.NewEmbedder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	if cfg.Normalize {
		emb = embedding.Normalized(emb)
	}
	return emb, nil
}

func newBackend(cfg config.VectorStoreConfig, logger *zap.Logger) (domain.VectorBackend, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewBackend(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		var apiKey string
		if cfg.Qdrant.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.Qdrant.APIKeyEnv)
		}
		return qdrant.NewBackend(qdrant.Config{
			URL:              cfg.Qdrant.URL,
			APIKey:           apiKey,
			CollectionPrefix: cfg.Qdrant.CollectionPrefix,
			UpsertBatch:      cfg.Qdrant.UpsertBatch,
			Timeout:          time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}, logger.Named("qdrant")), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func newChatModel(cfg config.LLMConfig, logger *zap.Logger) (domain.ChatModel, error) {
	switch cfg.Type {
	case "openai", "":
		client, err := openaillm.NewClient(openaillm.Config{
			BaseURL:     cfg.BaseURL,
			APIKeyEnv:   cfg.APIKeyEnv,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		}, logger.Named("llm"))
		if err != nil {
			return nil, fmt.Errorf("llm init failed: %w (get a key from https://console.mistral.ai/)", err)
		}
		return client, nil
	case "ollama":
		client, err := ollamaClient(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return ollamallm.NewClient(client, ollamallm.Config{Model: cfg.Model, Temperature: cfg.Temperature}), nil
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.Type)
	}
}

// ollamaClient uses baseURL when set and OLLAMA_HOST otherwise.
func ollamaClient(baseURL string) (*api.Client, error) {
	if baseURL == "" {
		return api.ClientFromEnvironment()
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama url: %w", err)
	}
	return api.NewClient(u, http.DefaultClient), nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
