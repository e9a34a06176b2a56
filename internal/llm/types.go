package llm

import (
	"context"
	"strings"
)

// Role names the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral generation request.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Stream      bool
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the aggregated text produced by one successful attempt.
type Result struct {
	Content      string
	Model        string
	FinishReason string
	Usage        *Usage
}

// Client performs a single generation attempt against one provider.
type Client interface {
	Complete(ctx context.Context, req Request) (*Result, error)
}

// SystemPrompt returns the concatenated system messages of the request.
func (r Request) SystemPrompt() string {
	var parts []string
	for _, msg := range r.Messages {
		if msg.Role == RoleSystem && strings.TrimSpace(msg.Content) != "" {
			parts = append(parts, strings.TrimSpace(msg.Content))
		}
	}
	return strings.Join(parts, "\n\n")
}

// Conversation returns the non-system messages of the request in order.
func (r Request) Conversation() []Message {
	out := make([]Message, 0, len(r.Messages))
	for _, msg := range r.Messages {
		if msg.Role == RoleSystem {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Snippet collapses whitespace and truncates content to limit runes, appending
// "..." when truncated. Empty content is rendered as "<empty>".
func Snippet(content string, limit int) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	runes := []rune(clean)
	if limit > 0 && len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
