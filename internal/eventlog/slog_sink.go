package eventlog

import (
	"context"
	"log/slog"
	"sort"

	"jobdraft/internal/logging"
)

// SlogSink mirrors events into a structured logger. Failure kinds are logged
// at warn level, everything else at info.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink wraps logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logging.NewComponentLogger(logger, "eventlog")}
}

func (s *SlogSink) Log(ctx context.Context, ev Event) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, ev.Kind),
		logging.String("source", ev.Source),
	}
	if ev.DraftID != "" {
		attrs = append(attrs, logging.DraftID(ev.DraftID))
	}
	keys := make([]string, 0, len(ev.Details))
	for k := range ev.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, logging.String(k, ev.Details[k]))
	}
	logger := logging.WithContext(ctx, s.logger)
	switch ev.Kind {
	case KindProviderFailure, KindFetchFailure, KindDraftInterrupted:
		logging.WarnWithContext(logger, ev.Message, ev.Kind, attrs...)
	case KindProvidersExhausted:
		logging.ErrorWithContext(logger, ev.Message, ev.Kind, attrs...)
	default:
		logger.Info(ev.Message, logging.Args(attrs...)...)
	}
}
