package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"jobdraft/internal/config"
	"jobdraft/internal/llm"
)

// Clients builds and caches one llm.Client per provider name.
type Clients struct {
	mu         sync.Mutex
	clients    map[string]llm.Client
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientsOption customizes Clients.
type ClientsOption func(*Clients)

// WithHTTPClient sets the HTTP client shared by every wire client.
func WithHTTPClient(client *http.Client) ClientsOption {
	return func(c *Clients) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used when a client is first built.
func WithLogger(logger *slog.Logger) ClientsOption {
	return func(c *Clients) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClients constructs an empty client cache.
func NewClients(opts ...ClientsOption) *Clients {
	c := &Clients{
		clients: make(map[string]llm.Client),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete runs one attempt against provider p.
func (c *Clients) Complete(ctx context.Context, p ProviderConfig, req llm.Request) (*llm.Result, error) {
	client, err := c.client(ctx, p)
	if err != nil {
		return nil, err
	}
	return client.Complete(ctx, req)
}

func (c *Clients) client(ctx context.Context, p ProviderConfig) (llm.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[p.Name]; ok {
		return client, nil
	}
	client, err := c.build(ctx, p)
	if err != nil {
		return nil, err
	}
	c.clients[p.Name] = client
	c.logger.Debug("provider client ready",
		slog.String("provider", p.Name),
		slog.String("kind", p.Kind),
		slog.String("model", p.Model),
	)
	return client, nil
}

func (c *Clients) build(ctx context.Context, p ProviderConfig) (llm.Client, error) {
	wire := llm.Config{
		APIKey:  p.Credential,
		BaseURL: p.BaseURL,
		Model:   p.Model,
		Referer: p.Referer,
		Title:   p.Title,
	}
	var opts []llm.Option
	if c.httpClient != nil {
		opts = append(opts, llm.WithHTTPClient(c.httpClient))
	}
	switch p.Kind {
	case config.KindOpenRouter, "":
		return llm.NewChatClient(wire, opts...), nil
	case config.KindOpenAI:
		return llm.NewOpenAIClient(wire, opts...)
	case config.KindGemini:
		return llm.NewGeminiClient(ctx, wire, opts...)
	default:
		return nil, fmt.Errorf("provider %s: unsupported kind %q", p.Name, p.Kind)
	}
}
