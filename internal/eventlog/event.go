package eventlog

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageLength bounds Event.Message in runes.
const MaxMessageLength = 200

// Event kinds.
const (
	KindProviderFailure    = "provider_failure"
	KindProvidersExhausted = "providers_exhausted"
	KindCooldownActive     = "cooldown_active"
	KindFetchFailure       = "fetch_failure"
	KindDraftStatus        = "draft_status"
	KindDraftInterrupted   = "draft_interrupted"
)

// Event is one entry of the operational event log.
type Event struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Source    string            `json:"source"`
	DraftID   string            `json:"draft_id,omitempty"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// New builds an event with a fresh id and timestamp. The message is truncated
// to MaxMessageLength.
func New(kind, source, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Source:    source,
		Message:   Truncate(message, MaxMessageLength),
		CreatedAt: time.Now().UTC(),
	}
}

// WithDraft returns a copy of e bound to draftID.
func (e Event) WithDraft(draftID string) Event {
	e.DraftID = draftID
	return e
}

// With returns a copy of e with an additional detail.
func (e Event) With(key, value string) Event {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

// Truncate shortens s to at most limit runes after collapsing whitespace.
func Truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// Sink receives events.
type Sink interface {
	Log(ctx context.Context, ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Log(context.Context, Event) {}

type multi []Sink

// Multi fans an event out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Log(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Log(ctx, ev)
	}
}
