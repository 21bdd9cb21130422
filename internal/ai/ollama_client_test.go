package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestOllamaGenerateSuccess(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]any{"role": "assistant", "content": "hello from ollama"},
			"prompt_eval_count": 12,
			"eval_count":        3,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 16})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "hello from ollama" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected simulated request id")
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("expected usage 15, got %d", resp.Usage.TotalTokens)
	}
}

func TestOllamaGenerateBadRequest(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "bad request"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}})
	var br *BadRequestError
	if !errors.As(err, &br) {
		t.Fatalf("expected BadRequestError, got %T: %v", err, err)
	}
	if br.Message != "bad request" {
		t.Fatalf("expected message from body, got %q", br.Message)
	}
}

func TestOllamaModelNotPulled(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'x' not found, try pulling it first"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, 2*time.Second, 2, time.Millisecond, time.Millisecond)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "x", Messages: []Message{{Role: "user", Content: "hi"}}})
	var mnf *ModelNotFoundError
	if !errors.As(err, &mnf) {
		t.Fatalf("expected ModelNotFoundError, got %T: %v", err, err)
	}
}

func TestOllamaGenerateEmptyMessages(t *testing.T) {
	c := NewOllamaClient("http://localhost:11434", 2*time.Second, 1, 0, 0)

	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: []Message{}})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	// reserve a port then close it so nothing listens there
	srv := newIPv4Server(t, http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_ = srv.ln.Close()

	c := NewOllamaClient(url, time.Second, 1, time.Millisecond, time.Millisecond)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}})
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %T: %v", err, err)
	}
}

func TestOllamaGenerateMultipleMessages(t *testing.T) {
	var capturedRequest ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&capturedRequest); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "response"},
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	messages := []Message{
		{Role: "system", Content: "You find placeholder values"},
		{Role: "user", Content: "Column value counts: {}"},
	}
	_, err := c.Generate(ctx, GenerateRequest{Model: "llama3:latest", Messages: messages, Temperature: 0.1})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(capturedRequest.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(capturedRequest.Messages))
	}
	for i, m := range messages {
		if capturedRequest.Messages[i].Role != m.Role || capturedRequest.Messages[i].Content != m.Content {
			t.Fatalf("message %d mismatch: %+v", i, capturedRequest.Messages[i])
		}
	}
	if capturedRequest.Stream {
		t.Fatalf("expected non-streaming request")
	}
	if capturedRequest.Options["temperature"] != 0.1 {
		t.Fatalf("expected temperature option, got %v", capturedRequest.Options)
	}
}
