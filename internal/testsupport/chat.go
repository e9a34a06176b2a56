package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// SamplePosting is a generated job posting long enough to pass completion checks.
const SamplePosting = `# Field Coordinator

## Overview
We are seeking a Field Coordinator to lead humanitarian response activities in Kenya.

## Key Responsibilities
- Coordinate field teams across three counties
- Manage logistics and supply distribution
- Report weekly to the country director

## Qualifications
- 3 years of humanitarian response experience
- Fluency in English and Swahili

## How to Apply
Send your CV and cover letter before 30 June.
`

// ChatServer is a fake OpenAI-compatible chat completion endpoint.
type ChatServer struct {
	*httptest.Server
	calls atomic.Int32
}

// Calls returns the number of requests served.
func (s *ChatServer) Calls() int {
	return int(s.calls.Load())
}

// NewChatServer serves handler and counts requests. The server is closed on cleanup.
func NewChatServer(t testing.TB, handler http.HandlerFunc) *ChatServer {
	t.Helper()
	srv := &ChatServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// RespondContent returns a handler that answers every request with content.
func RespondContent(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteCompletion(w, content)
	}
}

// RespondStatus returns a handler that fails every request with status.
func RespondStatus(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// WriteCompletion encodes a single-choice chat completion response.
func WriteCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id": "cmpl-test",
		"choices": []map[string]any{
			{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 34, "total_tokens": 46},
	})
}

// LongText returns a deterministic string of at least n characters.
func LongText(n int) string {
	const sentence = "The coordinator leads field teams and reports to the director. "
	return strings.Repeat(sentence, n/len(sentence)+1)
}
