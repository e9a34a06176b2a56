package notifications

import (
	"context"
	"log/slog"
	"time"

	"jobdraft/internal/drafts"
	"jobdraft/internal/eventlog"
	"jobdraft/internal/logging"
)

const sinkTimeout = 15 * time.Second

// Sink turns event log entries into notifications.
type Sink struct {
	svc    Service
	logger *slog.Logger
}

// NewSink wraps svc. Delivery failures are logged, never returned.
func NewSink(svc Service, logger *slog.Logger) *Sink {
	return &Sink{svc: svc, logger: logging.NewComponentLogger(logger, "notifications")}
}

func (s *Sink) Log(ctx context.Context, ev eventlog.Event) {
	if s == nil || !Enabled(s.svc) {
		return
	}
	send := s.dispatch(ev)
	if send == nil {
		return
	}
	// Deliver even when the producing request was cancelled.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()
	if err := send(sendCtx); err != nil {
		logging.WarnWithContext(s.logger, "notification not delivered", "notification_failed",
			logging.String("kind", ev.Kind),
			logging.DraftID(ev.DraftID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
			logging.String(logging.FieldImpact, "the event is still in `jobdraft events`"),
		)
	}
}

func (s *Sink) dispatch(ev eventlog.Event) func(context.Context) error {
	switch ev.Kind {
	case eventlog.KindDraftStatus:
		switch drafts.Status(ev.Details["status"]) {
		case drafts.StatusCompleted:
			return func(ctx context.Context) error {
				return s.svc.NotifyDraftCompleted(ctx, ev.DraftID, ev.Details["provider"])
			}
		case drafts.StatusFailed:
			kind := ev.Details["failure_kind"]
			if kind == string(drafts.FailureCancelled) {
				return nil
			}
			return func(ctx context.Context) error {
				return s.svc.NotifyDraftFailed(ctx, ev.DraftID, kind, ev.Message)
			}
		}
	case eventlog.KindProvidersExhausted:
		return func(ctx context.Context) error {
			return s.svc.NotifyProvidersExhausted(ctx, ev.Message)
		}
	case eventlog.KindDraftInterrupted:
		return func(ctx context.Context) error {
			return s.svc.NotifyDraftInterrupted(ctx, ev.DraftID)
		}
	}
	return nil
}
