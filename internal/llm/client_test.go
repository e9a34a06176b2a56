package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func writeChoice(t *testing.T, w http.ResponseWriter, message map[string]any) {
	t.Helper()
	payload := map[string]any{
		"model": "served-model",
		"choices": []any{
			map[string]any{"finish_reason": "stop", "message": message},
		},
		"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 5, "total_tokens": 8},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func userRequest() Request {
	return Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "You write job postings."},
			{Role: RoleUser, Content: "Field coordinator in Nairobi."},
		},
		Temperature: 0.7,
		MaxTokens:   100,
	}
}

func TestChatClientCompleteSendsHeadersAndPayload(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-or-test" {
			t.Fatalf("unexpected authorization header %q", auth)
		}
		if r.Header.Get("X-Title") != "jobdraft" {
			t.Fatalf("expected X-Title header, got %q", r.Header.Get("X-Title"))
		}
		if r.Header.Get("HTTP-Referer") != "https://example.org" {
			t.Fatalf("expected HTTP-Referer header, got %q", r.Header.Get("HTTP-Referer"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		writeChoice(t, w, map[string]any{"content": "  Posting body  "})
	}))
	defer server.Close()

	client := NewChatClient(Config{
		APIKey:  "sk-or-test",
		BaseURL: server.URL,
		Model:   "demo-model",
		Referer: "https://example.org",
		Title:   "jobdraft",
	})
	result, err := client.Complete(context.Background(), userRequest())
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if result.Content != "Posting body" {
		t.Fatalf("expected trimmed content, got %q", result.Content)
	}
	if result.Model != "served-model" {
		t.Fatalf("expected served model, got %q", result.Model)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 8 {
		t.Fatalf("expected usage to be decoded, got %+v", result.Usage)
	}
	if got.Model != "demo-model" || got.MaxTokens != 100 || len(got.Messages) != 2 {
		t.Fatalf("unexpected request payload %+v", got)
	}
	if got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected message roles %+v", got.Messages)
	}
}

func TestChatClientStatusErrorCarriesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer server.Close()

	client := NewChatClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	_, err := client.Complete(context.Background(), userRequest())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", statusErr.StatusCode)
	}
	if statusErr.RetryAfter != 42*time.Second {
		t.Fatalf("expected retry-after 42s, got %s", statusErr.RetryAfter)
	}
	if !strings.Contains(statusErr.Error(), "rate limit exceeded") {
		t.Fatalf("expected body in error, got %q", statusErr.Error())
	}
}

func TestChatClientEmptyContentIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChoice(t, w, map[string]any{"content": "", "refusal": "nope"})
	}))
	defer server.Close()

	client := NewChatClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	_, err := client.Complete(context.Background(), userRequest())
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
	var emptyErr *EmptyContentError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyContentError, got %T", err)
	}
	if emptyErr.Refusal != "nope" || emptyErr.FinishReason != "stop" {
		t.Fatalf("unexpected empty content details %+v", emptyErr)
	}
}

func TestChatClientIgnoresToolCallArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChoice(t, w, map[string]any{
			"content": "",
			"tool_calls": []any{map[string]any{
				"type":     "function",
				"function": map[string]any{"name": "post", "arguments": `{"title":"x"}`},
			}},
		})
	}))
	defer server.Close()

	client := NewChatClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	result, err := client.Complete(context.Background(), userRequest())
	var emptyErr *EmptyContentError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyContentError, got result %+v err %v", result, err)
	}
}

func TestChatClientNoChoicesIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewChatClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	if _, err := client.Complete(context.Background(), userRequest()); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestChatClientInvalidJSONIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}))
	defer server.Close()

	client := NewChatClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	if _, err := client.Complete(context.Background(), userRequest()); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestChatClientToleratesDeltaAndLegacyText(t *testing.T) {
	bodies := []string{
		`{"choices":[{"delta":{"content":"from delta"}}]}`,
		`{"choices":[{"text":"from text"}]}`,
	}
	for _, body := range bodies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		client := NewChatClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
		result, err := client.Complete(context.Background(), userRequest())
		server.Close()
		if err != nil {
			t.Fatalf("Complete(%s) returned error: %v", body, err)
		}
		if !strings.HasPrefix(result.Content, "from ") {
			t.Fatalf("unexpected content %q", result.Content)
		}
	}
}

func TestChatClientStreamAccumulatesChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload chatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if !payload.Stream {
			t.Fatalf("expected stream flag in payload")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Field ", "Coordinator", ""} {
			fmt.Fprintf(w, "data: {\"model\":\"m\",\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}],\"usage\":{\"total_tokens\":9}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	req := userRequest()
	req.Stream = true
	client := NewChatClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	result, err := client.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if result.Content != "Field Coordinator" {
		t.Fatalf("unexpected streamed content %q", result.Content)
	}
	if result.FinishReason != "stop" {
		t.Fatalf("expected finish reason stop, got %q", result.FinishReason)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 9 {
		t.Fatalf("expected usage from final chunk, got %+v", result.Usage)
	}
}

func TestChatClientStreamWithoutContentIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	req := userRequest()
	req.Stream = true
	client := NewChatClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	if _, err := client.Complete(context.Background(), req); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestChatClientRequiresAPIKey(t *testing.T) {
	client := NewChatClient(Config{Model: "demo"})
	if _, err := client.Complete(context.Background(), userRequest()); err == nil {
		t.Fatal("expected missing api key error")
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if d, ok := ParseRetryAfter("15", now); !ok || d != 15*time.Second {
		t.Fatalf("expected 15s, got %s %v", d, ok)
	}
	date := now.Add(90 * time.Second).Format(http.TimeFormat)
	if d, ok := ParseRetryAfter(date, now); !ok || d != 90*time.Second {
		t.Fatalf("expected 90s from date, got %s %v", d, ok)
	}
	for _, value := range []string{"", "-3", "soon"} {
		if _, ok := ParseRetryAfter(value, now); ok {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("  a\n\tb  ", 10); got != "a b" {
		t.Fatalf("expected collapsed whitespace, got %q", got)
	}
	if got := Snippet("abcdef", 3); got != "abc..." {
		t.Fatalf("expected truncation, got %q", got)
	}
	if got := Snippet(" ", 3); got != "<empty>" {
		t.Fatalf("expected placeholder, got %q", got)
	}
}
