package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

// Anthropic requires max_tokens on every request.
const anthropicDefaultMaxTokens = 1024

// AnthropicClient wraps go-anthropic's Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	apiKey string
	retry  retryPolicy
}

// NewAnthropicClient builds a client; an empty baseURL selects api.anthropic.com.
func NewAnthropicClient(apiKey, baseURL string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *AnthropicClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(&http.Client{Timeout: httpTimeout})}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(baseURL, "/")))
	}
	return &AnthropicClient{
		client: anthropic.NewClient(apiKey, opts...),
		apiKey: apiKey,
		retry:  newRetryPolicy(retryMax, baseDelay, maxDelay),
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, &MissingKeyError{Provider: ProviderAnthropic}
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	mreq := anthropic.MessagesRequest{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
	}
	if mreq.MaxTokens <= 0 {
		mreq.MaxTokens = anthropicDefaultMaxTokens
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		mreq.Temperature = &t
	}
	var system []string
	for _, m := range req.Messages {
		text := m.Content
		switch m.Role {
		case "system":
			system = append(system, text)
		case "assistant":
			mreq.Messages = append(mreq.Messages, anthropic.Message{Role: anthropic.RoleAssistant, Content: []anthropic.MessageContent{
				{Type: "text", Text: &text},
			}})
		default:
			mreq.Messages = append(mreq.Messages, anthropic.Message{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &text},
			}})
		}
	}
	mreq.System = strings.Join(system, "\n\n")

	var out GenerateResponse
	err := c.retry.run(ctx, func(int) (bool, time.Duration, error) {
		resp, err := c.client.CreateMessages(ctx, mreq)
		if err != nil {
			return classifyAnthropicError(err)
		}
		var text strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" && block.Text != nil {
				text.WriteString(*block.Text)
			}
		}
		if text.Len() == 0 {
			return false, 0, &EmptyResponseError{Provider: ProviderAnthropic}
		}
		out = GenerateResponse{
			ID:      resp.ID,
			Choices: []Choice{{Message: Message{Role: "assistant", Content: text.String()}}},
			Usage: Usage{
				PromptTokens:     resp.Usage.InputTokens,
				CompletionTokens: resp.Usage.OutputTokens,
				TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
			},
		}
		return false, 0, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// anthropicStatus maps Anthropic error types to the HTTP status they travel with.
var anthropicStatus = map[string]int{
	"invalid_request_error": http.StatusBadRequest,
	"authentication_error":  http.StatusUnauthorized,
	"permission_error":      http.StatusForbidden,
	"not_found_error":       http.StatusNotFound,
	"request_too_large":     http.StatusRequestEntityTooLarge,
	"rate_limit_error":      http.StatusTooManyRequests,
	"api_error":             http.StatusInternalServerError,
	"overloaded_error":      529,
}

func classifyAnthropicError(err error) (bool, time.Duration, error) {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		typ := string(apiErr.Type)
		ae := &APIError{StatusCode: anthropicStatus[typ], Code: typ, Message: apiErr.Message}
		if ae.StatusCode == http.StatusNotFound {
			ae.Code = "model_not_found"
		}
		return retryableStatus(ae.StatusCode), 0, classifyAPIError(ae, nil)
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		ae := &APIError{StatusCode: reqErr.StatusCode}
		if reqErr.Err != nil {
			ae.Message = reqErr.Err.Error()
		}
		return retryableStatus(ae.StatusCode), 0, classifyAPIError(ae, nil)
	}
	if isRetryableNetErr(err) {
		return true, 0, &UnreachableError{Err: err}
	}
	return false, 0, fmt.Errorf("anthropic request: %w", err)
}
