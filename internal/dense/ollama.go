package dense

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type ollamaPullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// EnsureOllamaModels checks that Ollama is reachable at baseURL and pulls
// any of the given models it does not have yet.
func EnsureOllamaModels(ctx context.Context, client *http.Client, baseURL string, logger *zap.Logger, models ...string) error {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	available, err := ollamaModels(ctx, client, baseURL)
	if err != nil {
		return fmt.Errorf("ollama is not running or not reachable at %s: %w", baseURL, err)
	}

	for _, model := range models {
		if model == "" || hasModel(available, model) {
			logger.Debug("model is available", zap.String("model", model))
			continue
		}

		logger.Info("model not found, pulling", zap.String("model", model))
		if err := pullModel(ctx, client, baseURL, model); err != nil {
			return err
		}
		logger.Info("model pulled", zap.String("model", model))
	}
	return nil
}

func ollamaModels(ctx context.Context, client *http.Client, baseURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	return names, nil
}

// hasModel matches "name" against "name:latest" the way ollama tags do.
func hasModel(available []string, model string) bool {
	for _, name := range available {
		if name == model || name == model+":latest" {
			return true
		}
	}
	return false
}

func pullModel(ctx context.Context, client *http.Client, baseURL, model string) error {
	body, err := json.Marshal(ollamaPullRequest{Name: model, Stream: false})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to pull model %s: %w", model, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to pull model %s: status %d", model, resp.StatusCode)
	}
	return nil
}
