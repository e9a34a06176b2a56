package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"jobdraft/internal/classify"
	"jobdraft/internal/drafts"
	"jobdraft/internal/eventlog"
	"jobdraft/internal/extract"
	"jobdraft/internal/orchestrator"
	"jobdraft/internal/ratelimit"
)

func TestFromDraftFormatsFields(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("EAT", 3*3600))
	draft := &drafts.Draft{
		ID:          "d1",
		OwnerID:     "owner",
		InputType:   "brief",
		RawInput:    "We need a   field coordinator",
		Status:      drafts.StatusFailed,
		FailureKind: drafts.FailureRateLimited,
		Attempts:    2,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	view := FromDraft(draft)
	if view.Title != "We need a field coordinator" {
		t.Fatalf("unexpected title %q", view.Title)
	}
	if view.Status != "failed" || view.FailureKind != "rate_limited" || !view.Retryable {
		t.Fatalf("unexpected status fields %+v", view)
	}
	if view.CreatedAt != "2026-03-01T06:30:00.000Z" {
		t.Fatalf("unexpected timestamp %q", view.CreatedAt)
	}

	encoded, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"ownerId"`, `"inputType"`, `"failureKind"`, `"createdAt"`} {
		if !strings.Contains(string(encoded), key) {
			t.Fatalf("expected %s in %s", key, encoded)
		}
	}
}

func TestFromDraftsSkipsNil(t *testing.T) {
	views := FromDrafts([]*drafts.Draft{nil, {ID: "a", Status: drafts.StatusPending}})
	if len(views) != 1 || views[0].ID != "a" {
		t.Fatalf("unexpected views %+v", views)
	}
}

func TestFromDocumentNeverEmitsNullTags(t *testing.T) {
	doc := extract.Extract("")
	view := FromDocument("d1", &doc)
	encoded, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(encoded), "null") {
		t.Fatalf("expected no null values, got %s", encoded)
	}
	if view.Title != doc.Title || len(view.Sections) != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
	empty := FromDocument("d2", nil)
	if empty.Sections == nil || empty.CategoryTags == nil || empty.SDGTags == nil {
		t.Fatalf("expected empty slices for nil document, got %+v", empty)
	}
}

func TestFromAdviceAddsClarificationWhenUnreliable(t *testing.T) {
	cls := classify.Classify("hi there")
	view := FromAdvice(cls, classify.Advise(cls, classify.AdviseOptions{}))
	if view.Clarification == "" || view.Classification.Reliable {
		t.Fatalf("expected clarification, got %+v", view)
	}
	if view.Questions == nil || view.Missing == nil {
		t.Fatalf("expected non-nil slices, got %+v", view)
	}
}

func TestFromOutcomeNeedsInput(t *testing.T) {
	view := FromOutcome(&orchestrator.Outcome{
		Classification: classify.Classification{Mode: classify.ModeUnknown, Confidence: 1},
		Clarification:  "what role?",
	})
	if !view.NeedsInput || view.Draft != nil {
		t.Fatalf("unexpected outcome view %+v", view)
	}

	doc := extract.Extract("# Driver\n\nDrive things.")
	view = FromOutcome(&orchestrator.Outcome{
		Draft:    &drafts.Draft{ID: "d9", Status: drafts.StatusCompleted},
		Document: &doc,
		Provider: "primary",
	})
	if view.NeedsInput || view.Draft == nil || view.Document == nil || view.Document.DraftID != "d9" {
		t.Fatalf("unexpected outcome view %+v", view)
	}
}

func TestFromRateLimitState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reset := now.Add(44*time.Second + 200*time.Millisecond)
	view := FromRateLimitState(ratelimit.State{LastLimitedAt: &now, ResetAt: &reset}, now)
	if !view.Active || view.RemainingSeconds != 45 {
		t.Fatalf("unexpected cooldown %+v", view)
	}
	expired := FromRateLimitState(ratelimit.State{ResetAt: &now}, now.Add(time.Minute))
	if expired.Active || expired.RemainingSeconds != 0 || expired.ResetAt == "" {
		t.Fatalf("unexpected expired cooldown %+v", expired)
	}
}

func TestFromEventRecordsDecodesDetails(t *testing.T) {
	ev := eventlog.New(eventlog.KindFetchFailure, "fetch", "boom").WithDraft("d1").With("url", "https://example.org")
	views := FromEventRecords([]drafts.EventRecord{eventlog.ToRecord(ev)})
	if len(views) != 1 {
		t.Fatalf("expected one view, got %d", len(views))
	}
	if views[0].Details["url"] != "https://example.org" || views[0].DraftID != "d1" {
		t.Fatalf("unexpected event view %+v", views[0])
	}
}

func TestMergeDraftStatsIncludesZeroes(t *testing.T) {
	merged := MergeDraftStats(drafts.Stats{drafts.StatusCompleted: 3})
	if len(merged) != len(drafts.AllStatuses()) {
		t.Fatalf("expected every status, got %v", merged)
	}
	if merged["completed"] != 3 || merged["pending"] != 0 {
		t.Fatalf("unexpected counts %v", merged)
	}
}
