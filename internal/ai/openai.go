package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient wraps go-openai for OpenAI and any OpenAI-compatible endpoint.
type OpenAIClient struct {
	client *openai.Client
	apiKey string
	retry  retryPolicy
}

// NewOpenAIClient builds a client; an empty baseURL selects api.openai.com.
func NewOpenAIClient(apiKey, baseURL string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OpenAIClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: httpTimeout}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		apiKey: apiKey,
		retry:  newRetryPolicy(retryMax, baseDelay, maxDelay),
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, &MissingKeyError{Provider: ProviderOpenAI}
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	creq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}

	var out GenerateResponse
	err := c.retry.run(ctx, func(int) (bool, time.Duration, error) {
		resp, err := c.client.CreateChatCompletion(ctx, creq)
		if err != nil {
			return classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return false, 0, &EmptyResponseError{Provider: ProviderOpenAI}
		}
		out = GenerateResponse{
			ID:      resp.ID,
			Choices: []Choice{{Message: Message{Role: "assistant", Content: resp.Choices[0].Message.Content}}},
			Usage: Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
			RequestID: resp.Header().Get("X-Request-Id"),
		}
		return false, 0, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// classifyOpenAIError maps go-openai errors onto this package's typed errors.
func classifyOpenAIError(err error) (bool, time.Duration, error) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		ae := &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		if code, ok := apiErr.Code.(string); ok {
			ae.Code = code
		}
		return retryableStatus(ae.StatusCode), 0, classifyAPIError(ae, nil)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		ae := &APIError{StatusCode: reqErr.HTTPStatusCode}
		if reqErr.Err != nil {
			ae.Message = reqErr.Err.Error()
		}
		return retryableStatus(ae.StatusCode), 0, classifyAPIError(ae, nil)
	}
	if isRetryableNetErr(err) {
		return true, 0, &UnreachableError{Err: err}
	}
	return false, 0, fmt.Errorf("openai request: %w", err)
}
