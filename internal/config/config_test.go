package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, vars map[string]string) (Config, error) {
	t.Helper()
	if vars == nil {
		vars = map[string]string{}
	}
	return load(env.Options{Environment: vars})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadFrom(t, nil)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, "\n", cfg.ChunkSeparator)
	assert.Equal(t, 3, cfg.TopK)
	assert.InDelta(t, 0.25, cfg.WeightLexical, 1e-12)
	assert.InDelta(t, 0.75, cfg.WeightDense, 1e-12)
	assert.InDelta(t, 1.5, cfg.BM25K1, 1e-12)
	assert.Equal(t, "ollama", cfg.EmbedProvider)
	assert.Equal(t, "gemma2:2b", cfg.LLMModel)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 2, cfg.LLMMaxRetries)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes)
	require.Len(t, cfg.HedgePhrases, 9)
	assert.Equal(t, "I don't know", cfg.HedgePhrases[0])
	assert.Equal(t, "document does not provide", cfg.HedgePhrases[8])
}

func TestLoad_EnvOverrides(t *testing.T) {
	cfg, err := loadFrom(t, map[string]string{
		"CHUNK_SIZE":      "200",
		"CHUNK_OVERLAP":   "20",
		"CHUNK_SEPARATOR": `\n\n`,
		"EMBED_PROVIDER":  "openai",
		"HEDGE_PHRASES":   "no idea|not sure",
		"LLM_TIMEOUT":     "5s",
	})
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.ChunkSize)
	assert.Equal(t, "\n\n", cfg.ChunkSeparator)
	assert.Equal(t, "openai", cfg.EmbedProvider)
	assert.Equal(t, []string{"no idea", "not sure"}, cfg.HedgePhrases)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
}

func TestLoad_YAMLOverlayWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docqa.yaml")
	yml := "top_k: 5\nllm_model: llama3\nllm_timeout: 10s\nhedge_phrases:\n  - cannot say\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := loadFrom(t, map[string]string{
		"CONFIG_FILE": path,
		"TOP_K":       "7",
		"CHUNK_SIZE":  "500",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, "llama3", cfg.LLMModel)
	assert.Equal(t, 10*time.Second, cfg.LLMTimeout)
	assert.Equal(t, []string{"cannot say"}, cfg.HedgePhrases)
	// Keys absent from the file keep their env values.
	assert.Equal(t, 500, cfg.ChunkSize)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := loadFrom(t, map[string]string{"CONFIG_FILE": filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := loadFrom(t, nil)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, ErrInvalidChunking},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, ErrInvalidChunking},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, ErrInvalidChunking},
		{"negative weight", func(c *Config) { c.WeightDense = -0.1 }, ErrInvalidWeights},
		{"both weights zero", func(c *Config) { c.WeightLexical, c.WeightDense = 0, 0 }, ErrInvalidWeights},
		{"zero top k", func(c *Config) { c.TopK = 0 }, ErrInvalidTopK},
		{"unknown provider", func(c *Config) { c.EmbedProvider = "cohere" }, ErrUnknownProvider},
		{"unknown env", func(c *Config) { c.Env = "staging" }, ErrUnknownEnv},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidate_ClampsWorkers(t *testing.T) {
	cfg, err := loadFrom(t, map[string]string{"EMBED_CONCURRENCY": "0", "LLM_MAX_RETRIES": "-3"})
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.EmbedConcurrency)
	assert.Equal(t, 0, cfg.LLMMaxRetries)
}
