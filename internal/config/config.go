package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Config is read from the environment first; an optional YAML file named by
// CONFIG_FILE is applied on top and its keys win.
type Config struct {
	Env        string `env:"ENV" envDefault:"local" yaml:"env"`
	LogLevel   string `env:"LOG_LEVEL" yaml:"log_level"`
	ConfigFile string `env:"CONFIG_FILE" yaml:"-"`

	ChunkSize      int    `env:"CHUNK_SIZE" envDefault:"1000" yaml:"chunk_size"`
	ChunkOverlap   int    `env:"CHUNK_OVERLAP" envDefault:"100" yaml:"chunk_overlap"`
	ChunkSeparator string `env:"CHUNK_SEPARATOR" envDefault:"\n" yaml:"chunk_separator"`

	TopK          int     `env:"TOP_K" envDefault:"3" yaml:"top_k"`
	WeightLexical float64 `env:"WEIGHT_LEXICAL" envDefault:"0.25" yaml:"weight_lexical"`
	WeightDense   float64 `env:"WEIGHT_DENSE" envDefault:"0.75" yaml:"weight_dense"`
	BM25K1        float64 `env:"BM25_K1" envDefault:"1.5" yaml:"bm25_k1"`
	BM25B         float64 `env:"BM25_B" envDefault:"0.75" yaml:"bm25_b"`
	BM25Epsilon   float64 `env:"BM25_EPSILON" envDefault:"0.25" yaml:"bm25_epsilon"`

	EmbedProvider    string `env:"EMBED_PROVIDER" envDefault:"ollama" yaml:"embed_provider"`
	EmbedConcurrency int    `env:"EMBED_CONCURRENCY" envDefault:"4" yaml:"embed_concurrency"`
	OllamaURL        string `env:"OLLAMA_URL" envDefault:"http://localhost:11434" yaml:"ollama_url"`
	OllamaEmbedModel string `env:"OLLAMA_EMBED_MODEL" envDefault:"nomic-embed-text" yaml:"ollama_embed_model"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL" yaml:"openai_base_url"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY" yaml:"openai_api_key"`
	OpenAIEmbedModel string `env:"OPENAI_EMBED_MODEL" envDefault:"text-embedding-3-small" yaml:"openai_embed_model"`

	LLMBaseURL     string        `env:"LLM_BASE_URL" envDefault:"http://localhost:11434/v1" yaml:"llm_base_url"`
	LLMAPIKey      string        `env:"LLM_API_KEY" yaml:"llm_api_key"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"gemma2:2b" yaml:"llm_model"`
	LLMTemperature float32       `env:"LLM_TEMPERATURE" envDefault:"0" yaml:"llm_temperature"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"60s" yaml:"llm_timeout"`
	LLMMaxRetries  int           `env:"LLM_MAX_RETRIES" envDefault:"2" yaml:"llm_max_retries"`

	SystemPrompt string   `env:"SYSTEM_PROMPT" yaml:"system_prompt"`
	HedgePhrases []string `env:"HEDGE_PHRASES" envSeparator:"|" envDefault:"I don't know|I couldn't find|there is no information about|I'm sorry|is not mentioned|I don't have information|there is no specific information|there is no mention|document does not provide" yaml:"hedge_phrases"`

	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":8080" yaml:"http_addr"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"33554432" yaml:"max_upload_bytes"`
}

var (
	ErrInvalidChunking = errors.New("invalid chunking parameters")
	ErrInvalidWeights  = errors.New("invalid fusion weights")
	ErrInvalidTopK     = errors.New("top_k must be positive")
	ErrUnknownProvider = errors.New("unknown embedding provider")
	ErrUnknownEnv      = errors.New("unknown environment")
)

// Load parses the environment, overlays CONFIG_FILE when set and validates
// the result.
func Load() (Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("failed to parse env: %w", err)
	}

	if cfg.ConfigFile != "" {
		data, err := os.ReadFile(filepath.Clean(cfg.ConfigFile))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", cfg.ConfigFile, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ChunkSeparator = unescape(cfg.ChunkSeparator)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, %d), got %d",
			ErrInvalidChunking, c.ChunkSize, c.ChunkOverlap)
	}
	if c.WeightLexical < 0 || c.WeightDense < 0 || c.WeightLexical+c.WeightDense == 0 {
		return fmt.Errorf("%w: lexical=%v dense=%v", ErrInvalidWeights, c.WeightLexical, c.WeightDense)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, c.TopK)
	}
	switch c.EmbedProvider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.EmbedProvider)
	}
	switch c.Env {
	case "local", "dev", "prod":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnv, c.Env)
	}
	if c.LLMMaxRetries < 0 {
		c.LLMMaxRetries = 0
	}
	if c.EmbedConcurrency < 1 {
		c.EmbedConcurrency = 1
	}
	return nil
}

// unescape turns a literal "\n" or "\t" from a shell variable into the
// control character it names.
func unescape(s string) string {
	u, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return s
	}
	return u
}
