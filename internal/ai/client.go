package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to OpenRouter's OpenAI-compatible chat completions API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	retry      retryPolicy
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Message Message `json:"message"`
}

type GenerateResponse struct {
	ID        string   `json:"id"`
	Choices   []Choice `json:"choices"`
	Usage     Usage    `json:"usage"`
	RequestID string   `json:"-"`
}

// Text returns the content of the first choice, or "".
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// APIError represents a structured API error response.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api error: status=%d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " request_id=%s", e.RequestID)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	return b.String()
}

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewClient allows customizing HTTP timeout and retry/backoff behavior.
func NewClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *Client {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiKey:     apiKey,
		baseURL:    openRouterBaseURL,
		retry:      newRetryPolicy(retryMax, baseDelay, maxDelay),
	}
}

// NewClientWithBaseURL allows injecting a custom base URL (used in tests).
func NewClientWithBaseURL(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, baseURL string) *Client {
	c := NewClient(apiKey, httpTimeout, retryMax, baseDelay, maxDelay)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

func validateRequest(req GenerateRequest) error {
	if req.Model == "" {
		return errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return errors.New("messages cannot be empty")
	}
	return nil
}

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, &MissingKeyError{Provider: ProviderOpenRouter}
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"

	var out GenerateResponse
	err = c.retry.run(ctx, func(int) (bool, time.Duration, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return false, 0, fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("HTTP-Referer", "https://github.com/KaramelBytes/llmclean-cli")
		httpReq.Header.Set("X-Title", "llmclean")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return isRetryableNetErr(err), 0, &UnreachableError{Host: c.baseURL, Err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := readAPIError(resp)
			return retryableStatus(resp.StatusCode), retryAfter(resp.Header), classifyAPIError(apiErr, resp)
		}
		out = GenerateResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return false, 0, fmt.Errorf("decode response: %w", err)
		}
		out.RequestID = extractRequestID(resp)
		return false, 0, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// readAPIError decodes an error body of the shapes {"error":{"message","code"}},
// {"error":"..."} or {"message","code"}.
func readAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: extractRequestID(resp)}
	switch v := raw["error"].(type) {
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			apiErr.Message = msg
		}
		switch code := v["code"].(type) {
		case string:
			apiErr.Code = code
		case float64:
			if s, ok := v["status"].(string); ok {
				apiErr.Code = s
			}
		}
	case string:
		apiErr.Message = v
	}
	if apiErr.Message == "" {
		if msg, ok := raw["message"].(string); ok {
			apiErr.Message = msg
		}
	}
	if apiErr.Code == "" {
		if code, ok := raw["code"].(string); ok {
			apiErr.Code = code
		}
	}
	return apiErr
}

// classifyAPIError maps generic APIError to typed errors for better UX.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	msg := apiErr.Message
	code := apiErr.Code
	if sc == http.StatusUnauthorized || sc == http.StatusForbidden {
		return &AuthError{APIError: apiErr}
	}
	if sc == http.StatusTooManyRequests {
		var ra time.Duration
		if resp != nil {
			ra = retryAfter(resp.Header)
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	}
	if sc == http.StatusNotFound {
		if code == "model_not_found" || code == "NOT_FOUND" || containsAllFold(msg, "model", "not", "found") {
			return &ModelNotFoundError{APIError: apiErr}
		}
		return apiErr
	}
	if sc == http.StatusBadRequest {
		// Gemini reports a bad key as 400 INVALID_ARGUMENT.
		if containsAnyFold(msg, "api key not valid", "api_key_invalid") {
			return &AuthError{APIError: apiErr}
		}
		return &BadRequestError{APIError: apiErr}
	}
	if code == "quota_exceeded" || containsAnyFold(msg, "quota", "billing", "limit exceeded") {
		return &QuotaExceededError{APIError: apiErr}
	}
	if sc >= 500 && sc <= 599 {
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func containsAllFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if !containsFold(s, sub) {
			return false
		}
	}
	return true
}

func containsAnyFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	if s == "" || sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	keys := []string{"X-Request-Id", "OpenAI-Request-ID", "Openrouter-Request-ID", "X-Amzn-Requestid", "Request-Id"}
	for _, k := range keys {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}
