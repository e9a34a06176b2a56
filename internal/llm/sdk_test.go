package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOpenAIClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-test",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "OpenAI posting"},
			}},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 2, "total_tokens": 3},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient(Config{APIKey: "sk-test-key", BaseURL: server.URL + "/v1", Model: "gpt-test"})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	result, err := client.Complete(context.Background(), userRequest())
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if result.Content != "OpenAI posting" {
		t.Fatalf("unexpected content %q", result.Content)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 3 {
		t.Fatalf("expected usage, got %+v", result.Usage)
	}
}

func TestOpenAIClientStatusError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(Config{APIKey: "sk-test-key", BaseURL: server.URL + "/v1", Model: "gpt-test"})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	_, err = client.Complete(context.Background(), userRequest())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", statusErr.StatusCode)
	}
	if statusErr.RetryAfter != 7*time.Second {
		t.Fatalf("expected retry-after 7s, got %s", statusErr.RetryAfter)
	}
	if calls != 1 {
		t.Fatalf("expected SDK retries to be disabled, got %d calls", calls)
	}
}

func TestOpenAIClientRequiresModel(t *testing.T) {
	if _, err := NewOpenAIClient(Config{APIKey: "sk-test-key"}); err == nil {
		t.Fatal("expected missing model error")
	}
}

func TestGeminiClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-test:generateContent") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": "Gemini "}, map[string]any{"text": "posting"}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 2, "candidatesTokenCount": 4, "totalTokenCount": 6},
		})
	}))
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), Config{APIKey: "AIza-test-key", BaseURL: server.URL + "/", Model: "gemini-test"})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	result, err := client.Complete(context.Background(), userRequest())
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if result.Content != "Gemini posting" {
		t.Fatalf("unexpected content %q", result.Content)
	}
	if result.FinishReason != "STOP" {
		t.Fatalf("expected STOP, got %q", result.FinishReason)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 6 {
		t.Fatalf("expected usage, got %+v", result.Usage)
	}
}

func TestGeminiClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), Config{APIKey: "AIza-test-key", BaseURL: server.URL + "/", Model: "gemini-test"})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}
	_, err = client.Complete(context.Background(), userRequest())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", statusErr.StatusCode)
	}
	if !strings.Contains(statusErr.Body, "RESOURCE_EXHAUSTED") {
		t.Fatalf("expected status in body, got %q", statusErr.Body)
	}
}

func TestRequestSplitsSystemPrompt(t *testing.T) {
	req := userRequest()
	if req.SystemPrompt() != "You write job postings." {
		t.Fatalf("unexpected system prompt %q", req.SystemPrompt())
	}
	conv := req.Conversation()
	if len(conv) != 1 || conv[0].Role != RoleUser {
		t.Fatalf("unexpected conversation %+v", conv)
	}
}
