package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the credential-level rate limit record shared by every invocation.
// A future ResetAt means cooldown is active regardless of LastLimitedAt.
type State struct {
	LastLimitedAt *time.Time `json:"last_limited_at,omitempty"`
	ResetAt       *time.Time `json:"reset_at,omitempty"`
}

// Active reports whether the state describes an open cooldown window at now.
func (s State) Active(now time.Time) bool {
	return s.ResetAt != nil && s.ResetAt.After(now)
}

// Persister stores tracker state so separate processes observe the same
// cooldown. Implementations should be quick; failures are logged and ignored.
type Persister interface {
	SaveRateLimitState(ctx context.Context, state State) error
}

// Loader reads persisted state back. When the Persister also implements
// Loader, the tracker reloads before answering so cooldowns recorded by other
// processes sharing the store take effect.
type Loader interface {
	LoadRateLimitState(ctx context.Context) (State, error)
}

// Tracker owns the process-wide State behind a mutex.
type Tracker struct {
	mu        sync.Mutex
	state     State
	persister Persister
	loader    Loader
	logger    *slog.Logger
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithState seeds the tracker, typically from persisted state.
func WithState(state State) Option {
	return func(t *Tracker) {
		t.state = cloneState(state)
	}
}

// WithPersister writes every change through to p.
func WithPersister(p Persister) Option {
	return func(t *Tracker) {
		t.persister = p
		if loader, ok := p.(Loader); ok {
			t.loader = loader
		}
	}
}

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTracker constructs an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() State {
	t.reload()
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneState(t.state)
}

// Cooldown reports the remaining cooldown at now.
func (t *Tracker) Cooldown(now time.Time) (time.Duration, bool) {
	t.reload()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Active(now) {
		return 0, false
	}
	return t.state.ResetAt.Sub(now), true
}

// Record notes a rate-limit response observed at now. A nil resetAt keeps any
// previously known reset time.
func (t *Tracker) Record(now time.Time, resetAt *time.Time) {
	t.reload()
	t.mu.Lock()
	limited := now
	t.state.LastLimitedAt = &limited
	if resetAt != nil {
		reset := *resetAt
		t.state.ResetAt = &reset
	}
	snapshot := cloneState(t.state)
	t.mu.Unlock()
	t.persist(snapshot)
}

// EnsureCooldown opens a cooldown of window from now unless a reset time in
// the future is already known.
func (t *Tracker) EnsureCooldown(now time.Time, window time.Duration) time.Time {
	t.reload()
	t.mu.Lock()
	if t.state.Active(now) {
		reset := *t.state.ResetAt
		t.mu.Unlock()
		return reset
	}
	reset := now.Add(window)
	t.state.ResetAt = &reset
	if t.state.LastLimitedAt == nil {
		limited := now
		t.state.LastLimitedAt = &limited
	}
	snapshot := cloneState(t.state)
	t.mu.Unlock()
	t.persist(snapshot)
	return reset
}

// Clear forgets any recorded rate limit.
func (t *Tracker) Clear() {
	t.reload()
	t.mu.Lock()
	if t.state.LastLimitedAt == nil && t.state.ResetAt == nil {
		t.mu.Unlock()
		return
	}
	t.state = State{}
	t.mu.Unlock()
	t.persist(State{})
}

// reload replaces the in-memory state with the stored one. A failed read
// keeps what this process already knows.
func (t *Tracker) reload() {
	if t.loader == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, err := t.loader.LoadRateLimitState(ctx)
	if err != nil {
		t.logger.Debug("rate limit state not reloaded", slog.Any("error", err))
		return
	}
	t.mu.Lock()
	t.state = cloneState(state)
	t.mu.Unlock()
}

func (t *Tracker) persist(state State) {
	if t.persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := t.persister.SaveRateLimitState(ctx, state); err != nil {
		t.logger.Warn("rate limit state not persisted",
			slog.String("event_type", "rate_limit_persist_failed"),
			slog.String("error_hint", "cooldown is tracked in memory only for this process"),
			slog.Any("error", err),
		)
	}
}

func cloneState(s State) State {
	var out State
	if s.LastLimitedAt != nil {
		v := *s.LastLimitedAt
		out.LastLimitedAt = &v
	}
	if s.ResetAt != nil {
		v := *s.ResetAt
		out.ResetAt = &v
	}
	return out
}
