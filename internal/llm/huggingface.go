package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	hfDefaultBase  = "https://api-inference.huggingface.co"
	hfDefaultModel = "google/flan-t5-base"
)

// HuggingFaceClient calls the hosted Inference API text-generation task.
type HuggingFaceClient struct {
	baseURL    string
	token      string
	model      string
	httpClient *http.Client
}

func NewHuggingFaceClient(baseURL, token, model string, client *http.Client) *HuggingFaceClient {
	if baseURL == "" {
		baseURL = hfDefaultBase
	}
	if model == "" {
		model = hfDefaultModel
	}
	if client == nil {
		client = defaultHTTPClient()
	}
	return &HuggingFaceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		model:      model,
		httpClient: client,
	}
}

func (h *HuggingFaceClient) Name() string  { return "huggingface" }
func (h *HuggingFaceClient) Model() string { return h.model }

type hfParameters struct {
	MaxNewTokens   int  `json:"max_new_tokens"`
	DoSample       bool `json:"do_sample"`
	ReturnFullText bool `json:"return_full_text"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (h *HuggingFaceClient) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	req := hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens: maxTokens(cfg),
			DoSample:     cfg.Sample,
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + h.token}

	body, err := postJSON(ctx, h.httpClient, h.baseURL+"/models/"+h.model, headers, req)
	if err != nil {
		return "", &GenerationError{Provider: h.Name(), Err: err}
	}

	var gens []hfGeneration
	if err := json.Unmarshal(body, &gens); err != nil {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return "", &GenerationError{Provider: h.Name(), Err: fmt.Errorf("huggingface: %s", apiErr.Error)}
		}
		return "", &GenerationError{Provider: h.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(gens) == 0 {
		return "", &GenerationError{Provider: h.Name(), Err: ErrEmptyAnswer}
	}
	answer, err := cleanAnswer(gens[0].GeneratedText)
	if err != nil {
		return "", &GenerationError{Provider: h.Name(), Err: err}
	}
	return answer, nil
}
