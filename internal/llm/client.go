package llm

import (
	"bufio"
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

const (
	defaultHTTPTimeout  = 2 * time.Minute
	defaultChatEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	maxStreamLineBytes  = 1 << 20
)

// Config captures the runtime settings required to talk to one provider.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Referer string
	Title   string
}

// ChatClient talks to an OpenRouter/OpenAI-compatible chat completion endpoint.
type ChatClient struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

// Option customizes a client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	now        func() time.Time
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithClock overrides the clock used to interpret Retry-After dates.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) clientOptions {
	out := clientOptions{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}

// NewChatClient constructs a chat client using the supplied configuration.
func NewChatClient(cfg Config, opts ...Option) *ChatClient {
	o := applyOptions(opts)
	client := &ChatClient{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimSpace(cfg.BaseURL),
			Model:   strings.TrimSpace(cfg.Model),
			Referer: strings.TrimSpace(cfg.Referer),
			Title:   strings.TrimSpace(cfg.Title),
		},
		httpClient: o.httpClient,
		now:        o.now,
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultChatEndpoint
	}
	return client
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers return the streaming schema (delta) even when
		// stream=false.
		Delta        chatCompletionMessage `json:"delta"`
		Text         string                `json:"text"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

// Complete issues one chat completion request and returns the aggregated text.
func (c *ChatClient) Complete(ctx context.Context, req Request) (*Result, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("llm complete: api key required")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("llm complete: at least one message required")
	}
	payload := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}
	for _, msg := range req.Messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	resp, err := c.send(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if req.Stream && strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return c.readStream(resp.Body)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm request: read body: %w", err)
	}
	return c.decodeCompletion(body)
}

func (c *ChatClient) send(ctx context.Context, payload chatCompletionRequest) (*http.Response, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if payload.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request: http error: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		retryAfter, _ := ParseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	return resp, nil
}

func (c *ChatClient) decodeCompletion(body []byte) (*Result, error) {
	const op = "llm complete"
	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, malformed(op, fmt.Sprintf("decode response: %v (payload snippet: %s)", err, Snippet(string(body), 160)))
	}
	if completion.Error != nil {
		return nil, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return nil, malformed(op, "empty choices")
	}
	content, finishReason := extractCompletionPayload(completion)
	if content == "" {
		return nil, &EmptyContentError{
			Op:           op,
			FinishReason: finishReason,
			Refusal:      extractCompletionRefusal(completion),
			Snippet:      Snippet(string(body), 160),
		}
	}
	return &Result{
		Content:      content,
		Model:        firstNonEmpty(completion.Model, c.cfg.Model),
		FinishReason: finishReason,
		Usage:        completion.Usage,
	}, nil
}

// readStream accumulates server-sent chat completion chunks until [DONE] or EOF.
func (c *ChatClient) readStream(body io.Reader) (*Result, error) {
	const op = "llm stream"
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxStreamLineBytes)

	var (
		text         strings.Builder
		finishReason string
		model        string
		usage        *Usage
		chunks       int
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}
		var chunk chatCompletionResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, malformed(op, fmt.Sprintf("decode chunk: %v (chunk snippet: %s)", err, Snippet(data, 160)))
		}
		if chunk.Error != nil {
			return nil, fmt.Errorf("llm stream: api error: %s", strings.TrimSpace(chunk.Error.Message))
		}
		chunks++
		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		for _, choice := range chunk.Choices {
			text.WriteString(choice.Delta.Content)
			text.WriteString(choice.Message.Content)
			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("llm stream: read: %w", err)
	}
	if chunks == 0 {
		return nil, malformed(op, "stream contained no chunks")
	}
	content := strings.TrimSpace(text.String())
	if content == "" {
		return nil, &EmptyContentError{Op: op, FinishReason: finishReason, Snippet: "<stream>"}
	}
	return &Result{
		Content:      content,
		Model:        firstNonEmpty(model, c.cfg.Model),
		FinishReason: finishReason,
		Usage:        usage,
	}, nil
}

func extractCompletionPayload(completion chatCompletionResponse) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(
			choice.Message.Content,
			choice.Delta.Content,
			choice.Text,
		); content != "" {
			return content, finishReason
		}
	}
	return "", finishReason
}

func extractCompletionRefusal(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		if refusal := firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal); refusal != "" {
			return refusal
		}
	}
	return ""
}
