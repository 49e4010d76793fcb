package dense

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"docqa/internal/metrics"
)

var ErrEmbeddingProvider = errors.New("embedding provider error")

// EmbedConfig selects and configures the embedding backend.
type EmbedConfig struct {
	Provider      string // "ollama" or "openai"
	OllamaURL     string
	OllamaModel   string
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	Timeout       time.Duration // per call; zero means none
}

// NewEmbeddingFunc builds the embedding function for the configured
// provider, wrapped with request metrics and a per-call timeout.
func NewEmbeddingFunc(cfg EmbedConfig, logger *zap.Logger) (chromem.EmbeddingFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var fn chromem.EmbeddingFunc
	switch cfg.Provider {
	case "ollama":
		fn = chromem.NewEmbeddingFuncOllama(cfg.OllamaModel, strings.TrimSuffix(cfg.OllamaURL, "/")+"/api")
	case "openai":
		fn = newOpenAIEmbedding(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	logger.Info("embedding provider configured", zap.String("provider", cfg.Provider))
	return instrument(cfg.Provider, cfg.Timeout, fn), nil
}

func newOpenAIEmbedding(cfg EmbedConfig) chromem.EmbeddingFunc {
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)
	model := openai.EmbeddingModel(cfg.OpenAIModel)

	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:          []string{text},
			Model:          model,
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		})
		if err != nil {
			return nil, parseAPIError(err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("empty embedding response: %w", ErrEmbeddingProvider)
		}
		return resp.Data[0].Embedding, nil
	}
}

func instrument(provider string, timeout time.Duration, fn chromem.EmbeddingFunc) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		vec, err := fn(ctx, text)
		if err != nil {
			metrics.EmbeddingRequestsTotal.WithLabelValues(provider, "error").Inc()
			return nil, err
		}
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, "success").Inc()
		return vec, nil
	}
}

// parseAPIError extracts a readable message from an OpenAI-compatible error.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), ErrEmbeddingProvider)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, ErrEmbeddingProvider)
	}

	return fmt.Errorf("embedding request failed: %w: %w", ErrEmbeddingProvider, err)
}
