package drafts

import (
	"fmt"
	"strings"
	"time"
)

// Status represents a draft lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var orderedStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), orderedStatuses...)
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range orderedStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// FailureKind records why a draft entered the failed state.
type FailureKind string

const (
	FailureRateLimited   FailureKind = "rate_limited"
	FailureProvider      FailureKind = "provider"
	FailureConfiguration FailureKind = "configuration"
	FailureCancelled     FailureKind = "cancelled"
	FailureFetch         FailureKind = "fetch"
	FailureTooShort      FailureKind = "too_short"
	FailureInterrupted   FailureKind = "interrupted"
)

// Failure describes a failed generation attempt.
type Failure struct {
	Kind    FailureKind
	Message string
}

// NewDraft carries the caller-supplied fields for Create.
type NewDraft struct {
	OwnerID        string
	ConversationID string
	InputType      string
	RawInput       string
}

// Draft is one user-initiated document generation attempt.
type Draft struct {
	ID             string
	OwnerID        string
	ConversationID string
	InputType      string
	RawInput       string
	Status         Status
	GeneratedText  string
	ErrorMessage   string
	FailureKind    FailureKind
	Provider       string
	Attempts       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RateLimited reports whether the last failure was caused by provider rate limiting.
func (d *Draft) RateLimited() bool {
	return d != nil && d.Status == StatusFailed && d.FailureKind == FailureRateLimited
}

// Cancelled reports whether the last attempt was abandoned by the user.
func (d *Draft) Cancelled() bool {
	return d != nil && d.Status == StatusFailed && d.FailureKind == FailureCancelled
}

// Retryable reports whether the draft may re-enter processing.
func (d *Draft) Retryable() bool {
	return d != nil && CanTransition(d.Status, StatusProcessing)
}

// DisplayTitle returns a short label for list views.
func (d *Draft) DisplayTitle() string {
	if d == nil {
		return ""
	}
	text := strings.Join(strings.Fields(d.RawInput), " ")
	const limit = 60
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit-1]) + "…"
	}
	return text
}

// String implements fmt.Stringer for log output.
func (d *Draft) String() string {
	if d == nil {
		return "<nil draft>"
	}
	return fmt.Sprintf("draft %s (%s)", d.ID, d.Status)
}

// Stats aggregates draft counts by status.
type Stats map[Status]int

// Total returns the number of drafts counted.
func (s Stats) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Statuses       []Status
	OwnerID        string
	ConversationID string
	Limit          uint64
}

// EventRecord is a persisted event log entry.
type EventRecord struct {
	ID        string
	Kind      string
	Source    string
	DraftID   string
	Message   string
	Details   string
	CreatedAt time.Time
}

// EventFilter narrows ListEvents results.
type EventFilter struct {
	Kind    string
	DraftID string
	Limit   uint64
}
