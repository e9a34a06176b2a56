package eventlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"jobdraft/internal/drafts"
	"jobdraft/internal/logging"
)

// Recorder persists event records. *drafts.Store implements it.
type Recorder interface {
	InsertEvent(ctx context.Context, rec drafts.EventRecord) error
}

// StoreSink writes events through a Recorder.
type StoreSink struct {
	recorder Recorder
	logger   *slog.Logger
}

// NewStoreSink wraps recorder. Write failures are reported to logger.
func NewStoreSink(recorder Recorder, logger *slog.Logger) *StoreSink {
	return &StoreSink{recorder: recorder, logger: logging.NewComponentLogger(logger, "eventlog")}
}

func (s *StoreSink) Log(ctx context.Context, ev Event) {
	if s == nil || s.recorder == nil {
		return
	}
	// Persist even when the producing request was cancelled.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.recorder.InsertEvent(writeCtx, ToRecord(ev)); err != nil {
		logging.WarnWithContext(s.logger, "event not persisted", "event_persist_failed",
			logging.String("kind", ev.Kind),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database permissions and disk space"),
			logging.String(logging.FieldImpact, "event is missing from `jobdraft events`"),
		)
	}
}

// ToRecord converts an event into its persisted form.
func ToRecord(ev Event) drafts.EventRecord {
	rec := drafts.EventRecord{
		ID:        ev.ID,
		Kind:      ev.Kind,
		Source:    ev.Source,
		DraftID:   ev.DraftID,
		Message:   ev.Message,
		CreatedAt: ev.CreatedAt,
	}
	if len(ev.Details) > 0 {
		if encoded, err := json.Marshal(ev.Details); err == nil {
			rec.Details = string(encoded)
		}
	}
	return rec
}

// FromRecord converts a persisted record back into an event. Undecodable
// details are dropped.
func FromRecord(rec drafts.EventRecord) Event {
	ev := Event{
		ID:        rec.ID,
		Kind:      rec.Kind,
		Source:    rec.Source,
		DraftID:   rec.DraftID,
		Message:   rec.Message,
		CreatedAt: rec.CreatedAt,
	}
	if rec.Details != "" {
		var details map[string]string
		if err := json.Unmarshal([]byte(rec.Details), &details); err == nil {
			ev.Details = details
		}
	}
	return ev
}
