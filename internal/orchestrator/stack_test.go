package orchestrator

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"jobdraft/internal/drafts"
	"jobdraft/internal/eventlog"
	"jobdraft/internal/testsupport"
)

func TestStackFailsOverAndPersistsEvents(t *testing.T) {
	limited := testsupport.NewChatServer(t, testsupport.RespondStatus(http.StatusTooManyRequests, `{"error":{"message":"rate limit exceeded"}}`))
	healthy := testsupport.NewChatServer(t, testsupport.RespondContent(testsupport.SamplePosting))
	cfg := testsupport.NewConfig(t,
		testsupport.WithChatProvider("primary", limited.URL, 10),
		testsupport.WithChatProvider("secondary", healthy.URL, 20),
	)
	store := testsupport.MustOpenStore(t, cfg)
	bus := eventlog.NewBus()

	stack, err := NewStack(context.Background(), cfg, store, nil, bus)
	if err != nil {
		t.Fatalf("NewStack: %v", err)
	}
	if got := len(stack.Registry.Active()); got != 2 {
		t.Fatalf("active providers = %d", got)
	}

	out, err := stack.Orchestrator.Submit(context.Background(), Submission{Text: scenarioBrief})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Draft.Status != drafts.StatusCompleted || out.Draft.Provider != "secondary" {
		t.Fatalf("draft = %+v", out.Draft)
	}
	if limited.Calls() != 1 || healthy.Calls() != 1 {
		t.Fatalf("calls: limited=%d healthy=%d", limited.Calls(), healthy.Calls())
	}
	if state := stack.Tracker.Snapshot(); state.LastLimitedAt != nil || state.ResetAt != nil {
		t.Fatalf("success must clear the rate limit state, got %+v", state)
	}

	records, err := store.ListEvents(context.Background(), drafts.EventFilter{DraftID: out.Draft.ID})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	kinds := make([]string, 0, len(records))
	for _, rec := range records {
		kinds = append(kinds, rec.Kind)
	}
	if !contains(kinds, eventlog.KindProviderFailure) || !contains(kinds, eventlog.KindDraftStatus) {
		t.Fatalf("persisted kinds = %v", kinds)
	}
}

func TestStackRejectsMissingVocabulary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Extraction.VocabularyPath = testsupport.BaseDir(cfg) + "/missing.yaml"
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := NewStack(context.Background(), cfg, store, nil); err == nil || !strings.Contains(err.Error(), "vocabulary_path") {
		t.Fatalf("expected vocabulary error, got %v", err)
	}
}
