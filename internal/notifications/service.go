package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobdraft/internal/config"
)

const userAgent = "jobdraft/0.1.0"

// Service defines the notification surface used by the daemon.
type Service interface {
	NotifyDraftCompleted(ctx context.Context, draftID, provider string) error
	NotifyDraftFailed(ctx context.Context, draftID, failureKind, message string) error
	NotifyProvidersExhausted(ctx context.Context, message string) error
	NotifyDraftInterrupted(ctx context.Context, draftID string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notify.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc delivers anything.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyDraftCompleted(ctx context.Context, draftID, provider string) error {
	message := fmt.Sprintf("Draft %s is ready", strings.TrimSpace(draftID))
	if provider = strings.TrimSpace(provider); provider != "" {
		message += " (generated by " + provider + ")"
	}
	return n.send(ctx, payload{
		title:   "jobdraft - Draft Ready",
		message: message,
		tags:    []string{"jobdraft", "draft", "completed"},
	})
}

func (n *ntfyService) NotifyDraftFailed(ctx context.Context, draftID, failureKind, message string) error {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Draft %s failed", strings.TrimSpace(draftID))
	if failureKind = strings.TrimSpace(failureKind); failureKind != "" {
		builder.WriteString(" (" + failureKind + ")")
	}
	if message = strings.TrimSpace(message); message != "" {
		builder.WriteString(": " + message)
	}
	tags := []string{"jobdraft", "draft", "failed"}
	if failureKind != "" {
		tags = append(tags, failureKind)
	}
	return n.send(ctx, payload{
		title:    "jobdraft - Draft Failed",
		message:  builder.String(),
		tags:     tags,
		priority: "high",
	})
}

func (n *ntfyService) NotifyProvidersExhausted(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "every provider failed"
	}
	return n.send(ctx, payload{
		title:    "jobdraft - Providers Exhausted",
		message:  message,
		tags:     []string{"jobdraft", "providers", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyDraftInterrupted(ctx context.Context, draftID string) error {
	return n.send(ctx, payload{
		title:   "jobdraft - Draft Interrupted",
		message: fmt.Sprintf("Draft %s was interrupted by a restart; retry it with `jobdraft draft retry %s`", draftID, draftID),
		tags:    []string{"jobdraft", "draft", "interrupted"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "jobdraft - Test",
		message:  "Notification system test",
		tags:     []string{"jobdraft", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyDraftCompleted(context.Context, string, string) error      { return nil }
func (noopService) NotifyDraftFailed(context.Context, string, string, string) error { return nil }
func (noopService) NotifyProvidersExhausted(context.Context, string) error          { return nil }
func (noopService) NotifyDraftInterrupted(context.Context, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
