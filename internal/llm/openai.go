package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient performs completions through the official openai-go SDK.
type OpenAIClient struct {
	client openai.Client
	model  string
	opts   clientOptions
}

// NewOpenAIClient builds a client for an OpenAI-compatible endpoint. The SDK's
// own retries are disabled; failover is handled by the caller.
func NewOpenAIClient(cfg Config, opts ...Option) (*OpenAIClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai client: api key required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("openai client: model required")
	}
	o := applyOptions(opts)
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(o.httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	return &OpenAIClient{
		client: openai.NewClient(reqOpts...),
		model:  model,
		opts:   o,
	}, nil
}

// Complete issues one chat completion through the SDK.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Result, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("openai complete: at least one message required")
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    openAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	var completion *openai.ChatCompletion
	if req.Stream {
		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		acc := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			acc.AddChunk(stream.Current())
		}
		if err := stream.Err(); err != nil {
			_ = stream.Close()
			return nil, c.translateError(err)
		}
		_ = stream.Close()
		completion = &acc.ChatCompletion
	} else {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, c.translateError(err)
		}
		completion = resp
	}
	return c.result(completion)
}

func (c *OpenAIClient) result(completion *openai.ChatCompletion) (*Result, error) {
	const op = "openai complete"
	if completion == nil || len(completion.Choices) == 0 {
		return nil, malformed(op, "empty choices")
	}
	choice := completion.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return nil, &EmptyContentError{
			Op:           op,
			FinishReason: string(choice.FinishReason),
			Refusal:      choice.Message.Refusal,
			Snippet:      "<sdk>",
		}
	}
	result := &Result{
		Content:      content,
		Model:        firstNonEmpty(completion.Model, c.model),
		FinishReason: string(choice.FinishReason),
	}
	if completion.Usage.TotalTokens > 0 {
		result.Usage = &Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		}
	}
	return result, nil
}

func (c *OpenAIClient) translateError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai request: %w", err)
	}
	statusErr := &StatusError{
		StatusCode: apiErr.StatusCode,
		Body:       firstNonEmpty(apiErr.Message, apiErr.Error()),
	}
	if apiErr.Response != nil {
		statusErr.RetryAfter, _ = ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"), c.opts.now())
	}
	return statusErr
}

func openAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.ChatCompletionMessageParamOfAssistant(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
