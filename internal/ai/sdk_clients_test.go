package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestOpenAIClientRetriesThenSucceeds(t *testing.T) {
	var hits int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "slow down", "type": "rate_limit"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []any{map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": `["unknown"]`},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL, 2*time.Second, 3, time.Millisecond, 5*time.Millisecond)
	resp, err := c.Generate(context.Background(), userReq("hi"))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != `["unknown"]` || resp.Usage.TotalTokens != 12 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected 2 attempts, got %d", hits)
	}
}

func TestOpenAIClientAuthError(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "Incorrect API key provided", "code": "invalid_api_key"}})
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-bad", srv.URL, 2*time.Second, 3, time.Millisecond, 5*time.Millisecond)
	_, err := c.Generate(context.Background(), userReq("hi"))
	if !IsCredentialError(err) {
		t.Fatalf("expected credential error, got %T: %v", err, err)
	}
}

func TestAnthropicClientSuccess(t *testing.T) {
	var body map[string]any
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/messages") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-3-5-haiku-latest",
			"content":     []any{map[string]any{"type": "text", "text": `["BLOD"]`}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 20, "output_tokens": 4},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient("ak-test", srv.URL, 2*time.Second, 1, 0, 0)
	resp, err := c.Generate(context.Background(), GenerateRequest{
		Model:    "claude-3-5-haiku-latest",
		Messages: []Message{{Role: "system", Content: "sys"}, {Role: "user", Content: "counts"}},
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != `["BLOD"]` || resp.Usage.TotalTokens != 24 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if body["system"] != "sys" {
		t.Fatalf("system prompt not sent: %v", body["system"])
	}
	if mt, _ := body["max_tokens"].(float64); int(mt) != anthropicDefaultMaxTokens {
		t.Fatalf("expected default max_tokens, got %v", body["max_tokens"])
	}
}

func TestAnthropicClientAuthError(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "authentication_error", "message": "invalid x-api-key"},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient("ak-bad", srv.URL, 2*time.Second, 3, time.Millisecond, 5*time.Millisecond)
	_, err := c.Generate(context.Background(), userReq("hi"))
	if !IsCredentialError(err) {
		t.Fatalf("expected credential error, got %T: %v", err, err)
	}
}

func TestSDKClientsRequireKey(t *testing.T) {
	for _, rt := range []Runtime{
		NewOpenAIClient("", "", time.Second, 1, 0, 0),
		NewAnthropicClient("", "", time.Second, 1, 0, 0),
	} {
		_, err := rt.Generate(context.Background(), userReq("hi"))
		var mk *MissingKeyError
		if !errors.As(err, &mk) {
			t.Fatalf("%T: expected MissingKeyError, got %v", rt, err)
		}
	}
}
