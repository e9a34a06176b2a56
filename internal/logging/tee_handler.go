package logging

import (
	"context"
	"log/slog"
)

// teeHandler writes every record to the console handler and, at the same
// level, to the JSON archive behind `jobdraft logs`.
type teeHandler struct {
	console slog.Handler
	archive slog.Handler
}

func newTeeHandler(console, archive slog.Handler) slog.Handler {
	switch {
	case console == nil && archive == nil:
		return NoopHandler{}
	case archive == nil:
		return console
	case console == nil:
		return archive
	}
	return teeHandler{console: console, archive: archive}
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.archive.Enabled(ctx, level)
}

// Handle reports the archive error first; a failing console is less
// interesting than a lost log line.
func (h teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var consoleErr, archiveErr error
	if h.console.Enabled(ctx, record.Level) {
		consoleErr = h.console.Handle(ctx, record.Clone())
	}
	if h.archive.Enabled(ctx, record.Level) {
		archiveErr = h.archive.Handle(ctx, record)
	}
	if archiveErr != nil {
		return archiveErr
	}
	return consoleErr
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{console: h.console.WithAttrs(attrs), archive: h.archive.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{console: h.console.WithGroup(name), archive: h.archive.WithGroup(name)}
}
