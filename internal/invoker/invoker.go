package invoker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"jobdraft/internal/eventlog"
	"jobdraft/internal/llm"
	"jobdraft/internal/logging"
	"jobdraft/internal/providers"
	"jobdraft/internal/ratelimit"
	"jobdraft/internal/services"
)

const (
	defaultAttemptTimeout  = 30 * time.Second
	defaultCooldownWindow  = 60 * time.Second
	eventSource            = "invoker"
	maxAttemptMessageRunes = 200
)

// Client performs one attempt against one provider. *providers.Clients
// implements it.
type Client interface {
	Complete(ctx context.Context, p providers.ProviderConfig, req llm.Request) (*llm.Result, error)
}

// Result is a successful generation.
type Result struct {
	Content  string
	Provider string
	Model    string
	Usage    *llm.Usage
	// Attempts lists the failed attempts that preceded the success.
	Attempts []Attempt
}

// Invoker fails over across the registry's active providers.
type Invoker struct {
	registry        *providers.Registry
	client          Client
	tracker         *ratelimit.Tracker
	events          eventlog.Sink
	logger          *slog.Logger
	attemptTimeout  time.Duration
	defaultCooldown time.Duration
	now             func() time.Time
}

// Option customizes an Invoker.
type Option func(*Invoker)

// WithAttemptTimeout bounds every provider attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(inv *Invoker) {
		if d > 0 {
			inv.attemptTimeout = d
		}
	}
}

// WithDefaultCooldown sets the cooldown opened when every provider is rate
// limited without reporting a reset time.
func WithDefaultCooldown(d time.Duration) Option {
	return func(inv *Invoker) {
		if d > 0 {
			inv.defaultCooldown = d
		}
	}
}

// WithEvents sets the event sink for provider failures.
func WithEvents(sink eventlog.Sink) Option {
	return func(inv *Invoker) {
		if sink != nil {
			inv.events = sink
		}
	}
}

// WithLogger sets the invoker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(inv *Invoker) {
		if logger != nil {
			inv.logger = logger
		}
	}
}

// WithClock overrides the clock used for cooldown bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(inv *Invoker) {
		if now != nil {
			inv.now = now
		}
	}
}

// New constructs an Invoker. The tracker is shared with every other invoker
// that uses the same credentials.
func New(registry *providers.Registry, client Client, tracker *ratelimit.Tracker, opts ...Option) *Invoker {
	inv := &Invoker{
		registry:        registry,
		client:          client,
		tracker:         tracker,
		events:          eventlog.Nop{},
		logger:          logging.NewNop(),
		attemptTimeout:  defaultAttemptTimeout,
		defaultCooldown: defaultCooldownWindow,
		now:             time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(inv)
		}
	}
	if inv.tracker == nil {
		inv.tracker = ratelimit.NewTracker()
	}
	inv.logger = logging.NewComponentLogger(inv.logger, "invoker")
	return inv
}

// Tracker returns the rate-limit tracker consulted by the invoker.
func (inv *Invoker) Tracker() *ratelimit.Tracker {
	return inv.tracker
}

type callOptions struct {
	skipCooldown bool
}

// CallOption customizes a single Invoke call.
type CallOption func(*callOptions)

// SkipCooldownCheck contacts providers even while a cooldown is open.
func SkipCooldownCheck() CallOption {
	return func(o *callOptions) {
		o.skipCooldown = true
	}
}

// Invoke tries each active provider in priority order and returns the first
// usable generation.
func (inv *Invoker) Invoke(ctx context.Context, req llm.Request, opts ...CallOption) (*Result, error) {
	var call callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&call)
		}
	}
	logger := logging.WithContext(ctx, inv.logger)

	active := inv.registry.Active()
	if len(active) == 0 {
		return nil, inv.registry.Validate()
	}
	if !call.skipCooldown {
		now := inv.now()
		if remaining, ok := inv.tracker.Cooldown(now); ok {
			logger.Info("provider cooldown active; skipping generation",
				logging.Duration("remaining", remaining),
			)
			return nil, &CooldownError{Remaining: remaining, ResetAt: now.Add(remaining)}
		}
	}

	var attempts []Attempt
	for _, p := range active {
		if err := ctx.Err(); err != nil {
			return nil, context.Cause(ctx)
		}
		start := inv.now()
		result, err := inv.attempt(ctx, p, req)
		if err == nil {
			inv.tracker.Clear()
			logger.Info("generation succeeded",
				logging.Provider(p.Name),
				logging.String("model", result.Model),
				logging.Int("failed_attempts", len(attempts)),
			)
			return &Result{
				Content:  result.Content,
				Provider: p.Name,
				Model:    firstNonEmpty(result.Model, p.Model),
				Usage:    result.Usage,
				Attempts: attempts,
			}, nil
		}
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}

		attempt := Attempt{
			Provider:   p.Name,
			Class:      Classify(err),
			StatusCode: statusCode(err),
			Message:    eventlog.Truncate(err.Error(), maxAttemptMessageRunes),
			Duration:   inv.now().Sub(start),
		}
		attempts = append(attempts, attempt)
		inv.recordFailure(ctx, logger, p, attempt, err)
	}

	exhausted := &ExhaustedError{Attempts: attempts}
	if exhausted.AllRateLimited() {
		inv.tracker.EnsureCooldown(inv.now(), inv.defaultCooldown)
	}
	inv.events.Log(ctx, inv.event(ctx, eventlog.KindProvidersExhausted, exhausted.Error()).
		With("resolution", string(exhausted.Resolution())).
		With("attempts", strconv.Itoa(len(attempts))))
	return nil, exhausted
}

func (inv *Invoker) attempt(ctx context.Context, p providers.ProviderConfig, req llm.Request) (*llm.Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, inv.attemptTimeout)
	defer cancel()
	result, err := inv.client.Complete(attemptCtx, p, req)
	if err != nil {
		return nil, err
	}
	if err := checkContent(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (inv *Invoker) recordFailure(ctx context.Context, logger *slog.Logger, p providers.ProviderConfig, attempt Attempt, err error) {
	if attempt.Class == FailureRateLimited {
		now := inv.now()
		var resetAt *time.Time
		if delay := retryAfter(err); delay > 0 {
			reset := now.Add(delay)
			resetAt = &reset
		}
		inv.tracker.Record(now, resetAt)
	}
	logging.WarnWithContext(logger, "provider attempt failed", "provider_failure",
		logging.Provider(p.Name),
		logging.FailureClass(string(attempt.Class)),
		logging.Int("status_code", attempt.StatusCode),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(attempt.Class)),
		logging.String(logging.FieldImpact, "trying the next provider"),
	)
	ev := inv.event(ctx, eventlog.KindProviderFailure, fmt.Sprintf("%s %s: %s", p.Name, attempt.Class, attempt.Message)).
		With(logging.FieldProvider, p.Name).
		With("class", string(attempt.Class))
	if attempt.StatusCode > 0 {
		ev = ev.With("status_code", strconv.Itoa(attempt.StatusCode))
	}
	inv.events.Log(ctx, ev)
}

func (inv *Invoker) event(ctx context.Context, kind, message string) eventlog.Event {
	ev := eventlog.New(kind, eventSource, message)
	if id, ok := services.DraftIDFromContext(ctx); ok {
		ev = ev.WithDraft(id)
	}
	return ev
}

func hintFor(class FailureClass) string {
	switch class {
	case FailureRateLimited:
		return "provider quota exhausted; wait for the cooldown or add another provider"
	case FailureClient:
		return "check the provider credential and model name"
	case FailureMalformed:
		return "provider returned no usable text; try another model"
	default:
		return "provider unavailable; check network connectivity and provider status"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
