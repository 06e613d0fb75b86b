package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	claudeDefaultBase  = "https://api.anthropic.com"
	claudeDefaultModel = "claude-sonnet-4-5"
)

// ClaudeClient calls the Anthropic Messages API.
type ClaudeClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewClaudeClient(apiKey, model string) *ClaudeClient {
	if model == "" {
		model = claudeDefaultModel
	}
	return &ClaudeClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    claudeDefaultBase,
		httpClient: defaultHTTPClient(),
	}
}

func (c *ClaudeClient) Name() string  { return "claude" }
func (c *ClaudeClient) Model() string { return c.model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends prompt as a single user message.
func (c *ClaudeClient) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	req := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens(cfg),
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	if !cfg.Sample {
		zero := 0.0
		req.Temperature = &zero
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}

	body, err := postJSON(ctx, c.httpClient, c.baseURL+"/v1/messages", headers, req)
	if err != nil {
		return "", &GenerationError{Provider: c.Name(), Err: err}
	}

	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &GenerationError{Provider: c.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.Error != nil {
		return "", &GenerationError{Provider: c.Name(), Err: fmt.Errorf("%s: %s", resp.Error.Type, resp.Error.Message)}
	}
	var text string
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			text += block.Text
		}
	}
	answer, err := cleanAnswer(text)
	if err != nil {
		return "", &GenerationError{Provider: c.Name(), Err: err}
	}
	return answer, nil
}

// Close releases idle connections.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}

func maxTokens(cfg GenerateConfig) int {
	if cfg.MaxTokens <= 0 {
		return DefaultGenerateConfig().MaxTokens
	}
	return cfg.MaxTokens
}
