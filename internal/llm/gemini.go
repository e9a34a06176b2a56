package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient performs completions through the Google Gen AI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient builds a Gemini API client. BaseURL is optional and mainly
// used to point tests at a local server.
func NewGeminiClient(ctx context.Context, cfg Config, opts ...Option) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini client: api key required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("gemini client: model required")
	}
	o := applyOptions(opts)
	clientCfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Complete issues one generateContent call, streaming when requested.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Result, error) {
	contents := geminiContents(req.Conversation())
	if len(contents) == 0 {
		return nil, errors.New("gemini complete: at least one user message required")
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if system := req.SystemPrompt(); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	acc := &geminiAccumulator{}
	if req.Stream {
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, config) {
			if err != nil {
				return nil, translateGeminiError(err)
			}
			acc.add(resp)
		}
	} else {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
		if err != nil {
			return nil, translateGeminiError(err)
		}
		acc.add(resp)
	}
	return acc.result(c.model)
}

type geminiAccumulator struct {
	text         strings.Builder
	responses    int
	finishReason string
	model        string
	usage        *Usage
}

func (a *geminiAccumulator) add(resp *genai.GenerateContentResponse) {
	if resp == nil {
		return
	}
	a.responses++
	if resp.ModelVersion != "" {
		a.model = resp.ModelVersion
	}
	if meta := resp.UsageMetadata; meta != nil {
		a.usage = &Usage{
			PromptTokens:     int(meta.PromptTokenCount),
			CompletionTokens: int(meta.CandidatesTokenCount),
			TotalTokens:      int(meta.TotalTokenCount),
		}
	}
	// Only the first candidate is used.
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return
	}
	cand := resp.Candidates[0]
	if cand.FinishReason != "" {
		a.finishReason = string(cand.FinishReason)
	}
	if cand.Content == nil {
		return
	}
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		a.text.WriteString(part.Text)
	}
}

func (a *geminiAccumulator) result(model string) (*Result, error) {
	const op = "gemini complete"
	if a.responses == 0 {
		return nil, malformed(op, "no response received")
	}
	content := strings.TrimSpace(a.text.String())
	if content == "" {
		return nil, &EmptyContentError{Op: op, FinishReason: a.finishReason, Snippet: "<sdk>"}
	}
	return &Result{
		Content:      content,
		Model:        firstNonEmpty(a.model, model),
		FinishReason: a.finishReason,
		Usage:        a.usage,
	}, nil
}

func geminiContents(messages []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(msg.Content, role))
	}
	return out
}

func translateGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{
			StatusCode: apiErr.Code,
			Body:       strings.TrimSpace(apiErr.Status + " " + apiErr.Message),
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{
			StatusCode: apiErrPtr.Code,
			Body:       strings.TrimSpace(apiErrPtr.Status + " " + apiErrPtr.Message),
		}
	}
	return fmt.Errorf("gemini request: %w", err)
}
