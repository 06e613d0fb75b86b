package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	ollamaDefaultBase  = "http://localhost:11434"
	ollamaDefaultModel = "llama3.1:8b"
)

// OllamaClient generates with a local Ollama server via /api/generate.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOllamaClient(baseURL, model string, client *http.Client) *OllamaClient {
	if baseURL == "" {
		baseURL = ollamaDefaultBase
	}
	if model == "" {
		model = ollamaDefaultModel
	}
	if client == nil {
		client = defaultHTTPClient()
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: client,
	}
}

func (o *OllamaClient) Name() string  { return "ollama" }
func (o *OllamaClient) Model() string { return o.model }

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (o *OllamaClient) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	opts := map[string]any{"num_predict": maxTokens(cfg)}
	if !cfg.Sample {
		opts["temperature"] = 0
	}
	req := ollamaGenerateRequest{Model: o.model, Prompt: prompt, Options: opts}

	body, err := postJSON(ctx, o.httpClient, o.baseURL+"/api/generate", nil, req)
	if err != nil {
		return "", &GenerationError{Provider: o.Name(), Err: err}
	}
	var resp ollamaGenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &GenerationError{Provider: o.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.Error != "" {
		return "", &GenerationError{Provider: o.Name(), Err: fmt.Errorf("ollama: %s", resp.Error)}
	}
	answer, err := cleanAnswer(resp.Response)
	if err != nil {
		return "", &GenerationError{Provider: o.Name(), Err: err}
	}
	return answer, nil
}
