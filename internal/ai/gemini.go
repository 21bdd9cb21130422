package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient calls the Google Generative Language generateContent endpoint.
type GeminiClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	retry      retryPolicy
}

// NewGeminiClient builds a client; an empty baseURL selects the public endpoint.
func NewGeminiClient(apiKey, baseURL string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *GeminiClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return &GeminiClient{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		retry:      newRetryPolicy(retryMax, baseDelay, maxDelay),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ResponseID string `json:"responseId"`
}

func toGeminiRequest(req GenerateRequest) geminiRequest {
	var out geminiRequest
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			if out.SystemInstruction == nil {
				out.SystemInstruction = &geminiContent{}
			}
			out.SystemInstruction.Parts = append(out.SystemInstruction.Parts, geminiPart{Text: m.Content})
		case "assistant":
			out.Contents = append(out.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			out.Contents = append(out.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		gc := &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
		if req.Temperature > 0 {
			t := req.Temperature
			gc.Temperature = &t
		}
		out.GenerationConfig = gc
	}
	return out
}

// Generate sends one generateContent call and maps the first candidate to a choice.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, &MissingKeyError{Provider: ProviderGemini}
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(toGeminiRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	model := strings.TrimPrefix(req.Model, "models/")
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(model))

	var out GenerateResponse
	err = c.retry.run(ctx, func(int) (bool, time.Duration, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return false, 0, fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return isRetryableNetErr(err), 0, &UnreachableError{Host: c.baseURL, Err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := readAPIError(resp)
			return retryableStatus(resp.StatusCode), retryAfter(resp.Header), classifyAPIError(apiErr, resp)
		}
		var gresp geminiResponse
		if err := json.NewDecoder(resp.Body).Decode(&gresp); err != nil {
			return false, 0, fmt.Errorf("decode response: %w", err)
		}
		if len(gresp.Candidates) == 0 {
			return false, 0, &EmptyResponseError{Provider: ProviderGemini}
		}
		var text strings.Builder
		for _, p := range gresp.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
		out = GenerateResponse{
			ID:      gresp.ResponseID,
			Choices: []Choice{{Message: Message{Role: "assistant", Content: text.String()}}},
			Usage: Usage{
				PromptTokens:     gresp.UsageMetadata.PromptTokenCount,
				CompletionTokens: gresp.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      gresp.UsageMetadata.TotalTokenCount,
			},
			RequestID: extractRequestID(resp),
		}
		return false, 0, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
