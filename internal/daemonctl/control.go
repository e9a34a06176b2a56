package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"jobdraft/internal/api"
	"jobdraft/internal/config"
)

// ErrUnavailable reports that no daemon answered.
var ErrUnavailable = errors.New("jobdraft daemon is not running")

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the daemon bound at bind.
func NewClient(bind string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL(bind), http: httpClient}
}

// baseURL turns a listen address into a dialable URL. Wildcard hosts are
// replaced with loopback.
func baseURL(bind string) string {
	bind = strings.TrimSpace(bind)
	if strings.HasPrefix(bind, "http://") || strings.HasPrefix(bind, "https://") {
		return strings.TrimRight(bind, "/")
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "http://" + bind
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Locked reports whether another process holds the daemon lock.
func Locked(cfg *config.Config) (bool, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if ok {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}

// Connect returns a client when a daemon holds the lock and answers its
// health check, or ErrUnavailable.
func Connect(ctx context.Context, cfg *config.Config) (*Client, error) {
	locked, err := Locked(cfg)
	if err != nil {
		return nil, err
	}
	if !locked || strings.TrimSpace(cfg.Paths.APIBind) == "" {
		return nil, ErrUnavailable
	}
	client := NewClient(cfg.Paths.APIBind, nil)
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return client, nil
}

// Health pings /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil)
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (*api.StatusView, error) {
	var status api.StatusView
	if err := c.do(ctx, http.MethodGet, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Cancel abandons the running attempt for id and reports whether one was
// running.
func (c *Client) Cancel(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Cancelled bool `json:"cancelled"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/drafts/"+id+"/cancel", &resp); err != nil {
		return false, err
	}
	return resp.Cancelled, nil
}

// Retry schedules a new attempt in the daemon.
func (c *Client) Retry(ctx context.Context, id string) (*api.DraftView, error) {
	var resp api.DraftResponse
	if err := c.do(ctx, http.MethodPost, "/api/drafts/"+id+"/retry", &resp); err != nil {
		return nil, err
	}
	return &resp.Draft, nil
}

// APIError is a non-2xx daemon response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read daemon response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &payload)
		if payload.Error == "" {
			payload.Error = strings.TrimSpace(string(body))
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}
