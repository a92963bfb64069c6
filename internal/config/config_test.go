package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, "\n", cfg.Chunker.Separator)
	assert.Equal(t, "ollama", cfg.Embedder.Type)
	assert.Equal(t, "all-minilm", cfg.Embedder.Ollama.Model)
	assert.Equal(t, "cpu", cfg.Embedder.Ollama.Device)
	assert.True(t, cfg.Embedder.Normalize)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, "open-mistral-7b", cfg.LLM.Model)
	assert.Equal(t, "MISTRAL_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFillsPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  type: openai
llm:
  type: ollama
retrieval:
  top_k: 6
vector_store:
  type: qdrant
  qdrant:
    url: http://localhost:6333
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "mistral", cfg.LLM.Model)
	assert.Equal(t, 6, cfg.Retrieval.TopK)
	assert.Equal(t, "askpdf", cfg.VectorStore.Qdrant.CollectionPrefix)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ASKPDF_LLM_MODEL", "mistral-small-latest")
	t.Setenv("ASKPDF_EMBEDDER", "hashing")
	t.Setenv("ASKPDF_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "mistral-small-latest", cfg.LLM.Model)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"overlap above size", func(c *AppConfig) { c.Chunker.ChunkOverlap = 2000 }, "chunk_overlap"},
		{"unknown embedder", func(c *AppConfig) { c.Embedder.Type = "faiss" }, "embedder.type"},
		{"qdrant without url", func(c *AppConfig) { c.VectorStore.Type = "qdrant" }, "qdrant.url"},
		{"bad temperature", func(c *AppConfig) { c.LLM.Temperature = 3 }, "temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(path, defaultConfig()))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}
