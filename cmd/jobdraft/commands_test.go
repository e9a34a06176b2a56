package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobdraft/internal/api"
	"jobdraft/internal/drafts"
	"jobdraft/internal/testsupport"
)

func decodeOutput[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return v
}

func TestClassifyAndFollowUpsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"classify", "--json", scenarioBrief}, env.configPath)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	advice := decodeOutput[api.AdviceView](t, out)
	if advice.Classification.Mode != "brief" || !advice.Classification.Reliable {
		t.Fatalf("unexpected classification %+v", advice.Classification)
	}

	out, err = runCLI(t, []string{"classify", "hi", "there"}, env.configPath)
	if err != nil {
		t.Fatalf("classify unclear: %v", err)
	}
	requireContains(t, out, "unknown")

	out, err = runCLI(t, []string{"followups", scenarioBrief}, env.configPath)
	if err != nil {
		t.Fatalf("followups: %v", err)
	}
	requireContains(t, out, "1. ")
	requireContains(t, out, "Missing: ")
}

func TestSubmitShowAndRemove(t *testing.T) {
	chat := testsupport.NewChatServer(t, testsupport.RespondContent(testsupport.SamplePosting))
	env := setupCLITestEnv(t, testsupport.WithChatProvider("primary", chat.URL, 10))

	out, err := runCLI(t, []string{"submit", "--json", "--conversation", "conv-cli", scenarioBrief}, env.configPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	outcome := decodeOutput[api.OutcomeView](t, out)
	if outcome.Draft == nil || outcome.Draft.Status != string(drafts.StatusCompleted) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Document == nil || outcome.Document.Title != "Field Coordinator" {
		t.Fatalf("unexpected document %+v", outcome.Document)
	}
	id := outcome.Draft.ID

	out, err = runCLI(t, []string{"draft", "list", "--status", "completed"}, env.configPath)
	if err != nil {
		t.Fatalf("draft list: %v", err)
	}
	requireContains(t, out, id)

	out, err = runCLI(t, []string{"draft", "show", id, "--format", "markdown"}, env.configPath)
	if err != nil {
		t.Fatalf("draft show: %v", err)
	}
	if !strings.HasPrefix(out, "# Field Coordinator") {
		t.Fatalf("unexpected markdown %q", out)
	}

	out, err = runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	status := decodeOutput[api.StatusView](t, out)
	if status.Running || status.DraftStats["completed"] != 1 || len(status.Providers) != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	out, err = runCLI(t, []string{"events", "--draft", id, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if events := decodeOutput[api.EventListResponse](t, out); len(events.Events) == 0 {
		t.Fatal("expected events for the draft")
	}

	out, err = runCLI(t, []string{"draft", "rm", id}, env.configPath)
	if err != nil {
		t.Fatalf("draft rm: %v", err)
	}
	requireContains(t, out, "Removed draft "+id)

	if _, err := runCLI(t, []string{"draft", "show", id}, env.configPath); err == nil {
		t.Fatal("expected show of removed draft to fail")
	}
	if chat.Calls() != 1 {
		t.Fatalf("expected one provider call, got %d", chat.Calls())
	}
}

func TestSubmitWithoutProvidersCreatesNoDraft(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, []string{"submit", scenarioBrief}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no valid text-generation provider") {
		t.Fatalf("expected configuration error, got %v", err)
	}
	out, err := runCLI(t, []string{"draft", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("draft list: %v", err)
	}
	requireContains(t, out, "No drafts found")
}

func TestDraftListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := runCLI(t, []string{"draft", "list", "--status", "done"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}
}

func TestExtractCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(t.TempDir(), "posting.md")
	if err := os.WriteFile(input, []byte(testsupport.SamplePosting), 0o644); err != nil {
		t.Fatalf("write posting: %v", err)
	}

	out, err := runCLI(t, []string{"extract", "--format", "json", input}, env.configPath)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	doc := decodeOutput[api.DocumentView](t, out)
	if doc.Title != "Field Coordinator" || len(doc.Sections) == 0 {
		t.Fatalf("unexpected document %+v", doc)
	}

	out, err = runCLI(t, []string{"extract", "--format", "html", input}, env.configPath)
	if err != nil {
		t.Fatalf("extract html: %v", err)
	}
	requireContains(t, out, "<h1>Field Coordinator</h1>")

	if _, err := runCLI(t, []string{"extract", "--format", "pdf", input}, env.configPath); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestProvidersCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithChatProvider("primary", "http://127.0.0.1:1", 10))
	out, err := runCLI(t, []string{"providers"}, env.configPath)
	if err != nil {
		t.Fatalf("providers: %v", err)
	}
	requireContains(t, out, "primary")
	requireContains(t, out, "active")
}

func TestCheckCommand(t *testing.T) {
	chat := testsupport.NewChatServer(t, testsupport.RespondContent("OK"))
	env := setupCLITestEnv(t, testsupport.WithChatProvider("primary", chat.URL, 10))

	out, err := runCLI(t, []string{"check", "--live"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Provider primary (live)")
	if chat.Calls() != 1 {
		t.Fatalf("expected one live request, got %d", chat.Calls())
	}

	empty := setupCLITestEnv(t)
	if _, err := runCLI(t, []string{"check"}, empty.configPath); err == nil {
		t.Fatal("expected check to fail without providers")
	}
}
