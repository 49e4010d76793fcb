// Package llm is a chat-completion client for OpenAI-compatible endpoints
// such as Ollama's /v1 API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"docqa/internal/assistant"
	"docqa/internal/metrics"
)

var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrEmptyResponse    = errors.New("empty completion response")
)

const (
	defaultBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration // per attempt; zero means none
	MaxRetries  int
	Backoff     time.Duration // first retry delay, doubled per attempt
	Logger      *zap.Logger
}

// Client implements assistant.Completer.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	maxRetries  int
	backoff     time.Duration
	logger      *zap.Logger
}

func New(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	// go-openai omits a zero temperature, which lets the server pick its own
	// default.
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: temperature,
		timeout:     cfg.Timeout,
		maxRetries:  max(cfg.MaxRetries, 0),
		backoff:     backoff,
		logger:      logger,
	}
}

func (c *Client) Model() string {
	return c.model
}

// Complete sends the messages and returns the first choice. Transient
// failures (network, 429, 5xx) are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, messages []assistant.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAI(messages),
		Temperature: c.temperature,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(c.backoff, attempt-1)
			c.logger.Warn("retrying chat completion",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("chat completion canceled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		text, err := c.attempt(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (c *Client) attempt(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	metrics.LLMRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", c.parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", ErrEmptyResponse
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.model, "success").Inc()
	return resp.Choices[0].Message.Content, nil
}

func toOpenAI(messages []assistant.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// ModelUnavailableError reports a model the endpoint does not serve.
type ModelUnavailableError struct {
	Model   string
	Message string
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model %s unavailable: %s", e.Model, e.Message)
}

func (e *ModelUnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}

// statusError keeps the HTTP status for the retry decision.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func (c *Client) parseAPIError(err error) error {
	status := 0
	msg := err.Error()

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status, msg = apiErr.HTTPStatusCode, apiErr.Message
	case errors.As(err, &reqErr):
		status, msg = reqErr.HTTPStatusCode, string(reqErr.Body)
	}

	if status == http.StatusNotFound {
		return &statusError{status: status, err: &ModelUnavailableError{Model: c.model, Message: msg}}
	}
	if status != 0 {
		return &statusError{status: status, err: fmt.Errorf("chat API error %d: %s", status, msg)}
	}
	return fmt.Errorf("chat request failed: %w", err)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	return !errors.Is(err, ErrEmptyResponse)
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt > 16 {
		return maxBackoff
	}
	d := base << attempt
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	return d
}
