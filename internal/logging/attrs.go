package logging

import (
	"context"
	"log/slog"
	"time"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// DraftID tags a line with the draft it concerns.
func DraftID(id string) Attr { return slog.String(FieldDraftID, id) }

// Provider tags a line with a provider name.
func Provider(name string) Attr { return slog.String(FieldProvider, name) }

// FailureClass tags a line with how a provider attempt or draft failed.
func FailureClass(class string) Attr { return slog.String(FieldFailureClass, class) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args converts attrs for slog's variadic ...any methods.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger scopes logger to one component. A nil logger yields a
// no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// Operator-facing defaults for lines that omit them.
var (
	warnDefaults = []Attr{
		String(FieldErrorHint, "check logs for details"),
		String(FieldImpact, "operation completed with warnings"),
	}
	errorDefaults = []Attr{
		String(FieldErrorHint, "check logs for details"),
	}
)

// WarnWithContext logs a warning classified by eventType. error_hint and
// impact are filled in when attrs lack them.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	report(logger, slog.LevelWarn, msg, eventType, warnDefaults, attrs)
}

// ErrorWithContext logs an error classified by eventType. error_hint is
// filled in when attrs lack it.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	report(logger, slog.LevelError, msg, eventType, errorDefaults, attrs)
}

func report(logger *slog.Logger, level slog.Level, msg, eventType string, defaults, attrs []Attr) {
	if logger == nil {
		return
	}
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		seen[a.Key] = true
	}
	if !seen[FieldEventType] {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	for _, d := range defaults {
		if !seen[d.Key] {
			attrs = append(attrs, d)
		}
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
