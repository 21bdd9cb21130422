package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaClient is a minimal HTTP client for a local Ollama runtime.
type OllamaClient struct {
	httpClient *http.Client
	host       string
	retry      retryPolicy
}

const defaultOllamaHost = "http://127.0.0.1:11434"

// NewOllamaClient creates a new client targeting the given host (e.g., http://127.0.0.1:11434).
func NewOllamaClient(host string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OllamaClient {
	if host == "" {
		host = defaultOllamaHost
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 2
	}
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 1 * time.Second
	}
	return &OllamaClient{
		httpClient: &http.Client{Timeout: httpTimeout},
		host:       strings.TrimRight(host, "/"),
		retry:      newRetryPolicy(retryMax, baseDelay, maxDelay),
	}
}

// Structures aligned with Ollama /api/chat (non-streaming)
type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}
type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
	Done            bool `json:"done"`
}

// Generate sends a chat request to Ollama and maps the response to GenerateResponse.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	messages := make([]ollamaChatMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = ollamaChatMessage(msg)
	}
	oreq := ollamaChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{},
	}
	if req.Temperature > 0 {
		oreq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		oreq.Options["num_predict"] = req.MaxTokens
	}

	payload, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.host + "/api/chat"

	var out GenerateResponse
	err = c.retry.run(ctx, func(int) (bool, time.Duration, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return false, 0, fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return isRetryableNetErr(err), 0, &UnreachableError{Host: c.host, Err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := readAPIError(resp)
			switch {
			case resp.StatusCode == http.StatusNotFound:
				// Ollama answers 404 for a model that has not been pulled.
				return false, 0, &ModelNotFoundError{APIError: apiErr}
			case resp.StatusCode >= 500:
				return true, 0, &ServerError{APIError: apiErr}
			case resp.StatusCode == http.StatusBadRequest:
				return false, 0, &BadRequestError{APIError: apiErr}
			}
			return false, 0, apiErr
		}
		var oresp ollamaChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&oresp); err != nil {
			return false, 0, fmt.Errorf("decode response: %w", err)
		}
		out = GenerateResponse{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: oresp.Message.Content}}},
			Usage: Usage{
				PromptTokens:     oresp.PromptEvalCount,
				CompletionTokens: oresp.EvalCount,
				TotalTokens:      oresp.PromptEvalCount + oresp.EvalCount,
			},
			// Ollama has no request ids; a local one keeps logs correlatable.
			RequestID: fmt.Sprintf("ollama_%d", time.Now().UnixNano()),
		}
		return false, 0, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
