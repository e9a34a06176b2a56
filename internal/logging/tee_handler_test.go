package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestNewTeeHandlerCollapses(t *testing.T) {
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler without handlers")
	}
	var buf bytes.Buffer
	console := slog.NewJSONHandler(&buf, nil)
	if h := newTeeHandler(console, nil); h != console {
		t.Fatal("expected the console handler when no archive is configured")
	}
}

func TestTeeHandlerWritesBothSides(t *testing.T) {
	var consoleBuf, archiveBuf bytes.Buffer
	console := slog.NewJSONHandler(&consoleBuf, &slog.HandlerOptions{Level: slog.LevelWarn})
	archive := slog.NewJSONHandler(&archiveBuf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(newTeeHandler(console, archive))
	logger.Info("archived only")
	logger.With(DraftID("d1")).Warn("both", Provider("primary"))

	if strings.Contains(consoleBuf.String(), "archived only") {
		t.Fatalf("console received an info record: %s", consoleBuf.String())
	}
	if !strings.Contains(archiveBuf.String(), "archived only") {
		t.Fatalf("archive missed the info record: %s", archiveBuf.String())
	}
	for _, out := range []string{consoleBuf.String(), archiveBuf.String()} {
		if !strings.Contains(out, `"draft_id":"d1"`) || !strings.Contains(out, `"provider":"primary"`) {
			t.Fatalf("expected draft and provider fields, got %s", out)
		}
	}
}

func TestTeeHandlerReportsArchiveFailure(t *testing.T) {
	var buf bytes.Buffer
	console := slog.NewJSONHandler(&buf, nil)
	archive := failingHandler{slog.NewJSONHandler(&bytes.Buffer{}, nil)}

	h := newTeeHandler(console, archive)
	record := slog.NewRecord(time.Time{}, slog.LevelInfo, "hello", 0)
	if err := h.Handle(context.Background(), record); err == nil || err.Error() != "disk full" {
		t.Fatalf("expected archive error, got %v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("console should still receive the record: %s", buf.String())
	}
}
