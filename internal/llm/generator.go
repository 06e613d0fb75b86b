// Package llm turns prompts into answers through a hosted or local model.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GenerateConfig controls a single generation call.
type GenerateConfig struct {
	MaxTokens int
	// Sample enables stochastic decoding. When false providers are asked
	// for temperature 0 so the same prompt gives the same answer.
	Sample bool
}

// DefaultGenerateConfig mirrors the reference pipeline settings.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{MaxTokens: 200}
}

// Generator produces an answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error)
	Name() string
}

// ProviderConfig selects and configures a Generator.
type ProviderConfig struct {
	Provider   string // claude, ollama, huggingface
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewGenerator builds the generator named by cfg.Provider.
func NewGenerator(cfg ProviderConfig) (Generator, error) {
	switch cfg.Provider {
	case "", "claude":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude: API key is required")
		}
		c := NewClaudeClient(cfg.APIKey, cfg.Model)
		if cfg.BaseURL != "" {
			c.baseURL = cfg.BaseURL
		}
		if cfg.HTTPClient != nil {
			c.httpClient = cfg.HTTPClient
		}
		return c, nil
	case "ollama":
		return NewOllamaClient(cfg.BaseURL, cfg.Model, cfg.HTTPClient), nil
	case "huggingface":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("huggingface: API token is required")
		}
		return NewHuggingFaceClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.HTTPClient), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

// Instrument reports the latency and outcome of every call on g to stats.
func Instrument(g Generator, stats *LLMStats) Generator {
	return &instrumented{Generator: g, stats: stats}
}

type instrumented struct {
	Generator
	stats *LLMStats
}

func (i *instrumented) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	start := time.Now()
	out, err := i.Generator.Generate(ctx, prompt, cfg)
	i.stats.Observe(time.Since(start), err)
	return out, err
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 120 * time.Second}
}

// postJSON sends body to url and returns the raw response body. Transport
// errors, 429 and 5xx come back as *RetryableError; other non-2xx statuses
// as plain errors. The caller wraps them in a GenerationError.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	return respBody, nil
}
