package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"jobdraft/internal/api"
	"jobdraft/internal/drafts"
	"jobdraft/internal/orchestrator"
	"jobdraft/internal/testsupport"
)

const scenarioBrief = "We need a field coordinator with 3 years humanitarian response experience in Kenya."

func submission(text string) orchestrator.Submission {
	return orchestrator.Submission{OwnerID: "tester", ConversationID: "conv-1", Text: text}
}

func serve(t *testing.T, d *Daemon, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	d.api.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestAPIClassifyAndFollowUps(t *testing.T) {
	d, _ := newTestDaemon(t, testsupport.NewConfig(t))

	w := serve(t, d, http.MethodPost, "/api/classify", map[string]any{"text": "hi there"})
	if w.Code != http.StatusOK {
		t.Fatalf("classify status %d: %s", w.Code, w.Body.String())
	}
	unclear := decodeBody[api.AdviceView](t, w)
	if unclear.Classification.Mode != "unknown" || unclear.Clarification == "" {
		t.Fatalf("unexpected advice %+v", unclear)
	}

	w = serve(t, d, http.MethodPost, "/api/classify", map[string]any{"text": scenarioBrief})
	advice := decodeBody[api.AdviceView](t, w)
	if advice.Classification.Mode != "brief" || advice.Clarification != "" || len(advice.Questions) == 0 {
		t.Fatalf("unexpected advice %+v", advice)
	}

	w = serve(t, d, http.MethodPost, "/api/drafts", map[string]any{"text": scenarioBrief, "askFollowUps": true})
	if w.Code != http.StatusOK {
		t.Fatalf("follow-up submit status %d: %s", w.Code, w.Body.String())
	}
	outcome := decodeBody[api.OutcomeView](t, w)
	if !outcome.NeedsInput || outcome.Draft != nil || len(outcome.FollowUps) == 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestAPIRejectsBadRequests(t *testing.T) {
	d, store := newTestDaemon(t, testsupport.NewConfig(t))
	pending := testsupport.NewDraft(t, store, "conv-2", scenarioBrief)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown draft", http.MethodGet, "/api/drafts/missing", nil, http.StatusNotFound},
		{"empty text", http.MethodPost, "/api/drafts", map[string]any{"text": "  "}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/drafts", map[string]any{"txt": "x"}, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/api/drafts?status=done", nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/events?limit=-1", nil, http.StatusBadRequest},
		{"document not ready", http.MethodGet, "/api/drafts/" + pending.ID + "/document", nil, http.StatusConflict},
		{"retry pending", http.MethodPost, "/api/drafts/" + pending.ID + "/retry", nil, http.StatusConflict},
		{"cancel unknown", http.MethodPost, "/api/drafts/missing/cancel", nil, http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/drafts/" + pending.ID, nil, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(t, d, tc.method, tc.path, tc.body)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
		})
	}
}

func TestAPIListAndDelete(t *testing.T) {
	d, store := newTestDaemon(t, testsupport.NewConfig(t))
	first := testsupport.NewDraft(t, store, "conv-a", "first brief")
	testsupport.NewDraft(t, store, "conv-b", "second brief")

	w := serve(t, d, http.MethodGet, "/api/drafts?conversation=conv-a", nil)
	list := decodeBody[api.DraftListResponse](t, w)
	if len(list.Drafts) != 1 || list.Drafts[0].ID != first.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	w = serve(t, d, http.MethodGet, "/api/drafts?status=pending,failed&limit=1", nil)
	list = decodeBody[api.DraftListResponse](t, w)
	if len(list.Drafts) != 1 {
		t.Fatalf("expected limit to apply, got %+v", list)
	}

	w = serve(t, d, http.MethodDelete, "/api/drafts/"+first.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", w.Code, w.Body.String())
	}
	if _, err := store.Get(context.Background(), first.ID); err == nil {
		t.Fatal("expected draft to be deleted")
	}

	w = serve(t, d, http.MethodGet, "/api/status", nil)
	status := decodeBody[api.StatusView](t, w)
	if status.DraftStats["pending"] != 1 || status.Running {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAPIGeneratesAndStreamsDraft(t *testing.T) {
	chat := testsupport.NewChatServer(t, testsupport.RespondContent(testsupport.SamplePosting))
	cfg := testsupport.NewConfig(t, testsupport.WithChatProvider("primary", chat.URL, 10))
	d, _ := newTestDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	base := "http://" + d.Addr()

	body, _ := json.Marshal(map[string]any{"text": scenarioBrief, "conversationId": "conv-live"})
	resp, err := http.Post(base+"/api/drafts", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var outcome api.OutcomeView
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted || outcome.Draft == nil {
		t.Fatalf("submit status %d, outcome %+v", resp.StatusCode, outcome)
	}
	id := outcome.Draft.ID

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+d.Addr()+"/api/drafts/"+id+"/watch", nil)
	if err != nil {
		t.Fatalf("dial watch: %v", err)
	}
	defer conn.Close()
	var last watchMessage
	for !last.Done {
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		last = watchMessage{}
		if err := conn.ReadJSON(&last); err != nil {
			t.Fatalf("read watch frame: %v", err)
		}
	}
	if last.Draft == nil || last.Draft.Status != string(drafts.StatusCompleted) || last.Draft.Provider != "primary" {
		t.Fatalf("unexpected final frame %+v", last)
	}

	resp, err = http.Get(base + "/api/drafts/" + id + "/document?format=markdown")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	markdown, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.HasPrefix(string(markdown), "# Field Coordinator") {
		t.Fatalf("unexpected markdown %q", markdown)
	}

	resp, err = http.Get(base + "/api/drafts/" + id + "/document?format=html")
	if err != nil {
		t.Fatalf("document html: %v", err)
	}
	html, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(html), "<h1>Field Coordinator</h1>") {
		t.Fatalf("unexpected html %q", html)
	}

	resp, err = http.Get(base + "/api/drafts/" + id + "/document")
	if err != nil {
		t.Fatalf("document json: %v", err)
	}
	var doc api.DocumentView
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	resp.Body.Close()
	if doc.Title != "Field Coordinator" || doc.Markdown == "" || len(doc.Sections) == 0 {
		t.Fatalf("unexpected document %+v", doc)
	}

	resp, err = http.Get(base + "/api/events?draft=" + id)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	var events api.EventListResponse
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	resp.Body.Close()
	if len(events.Events) == 0 {
		t.Fatal("expected persisted events for the draft")
	}
	if chat.Calls() != 1 {
		t.Fatalf("expected one provider call, got %d", chat.Calls())
	}
}

func TestAPISubmitRejectsBusyConversation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithChatProvider("primary", "http://127.0.0.1:1", 10))
	d, store := newTestDaemon(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	running := testsupport.NewDraft(t, store, "conv-busy", scenarioBrief)
	if _, err := store.BeginProcessing(ctx, running.ID); err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}

	w := serve(t, d, http.MethodPost, "/api/drafts", map[string]any{"text": scenarioBrief, "conversationId": "conv-busy"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (%s)", w.Code, w.Body.String())
	}
	items, err := store.List(ctx, drafts.ListFilter{ConversationID: "conv-busy"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].ID != running.ID {
		t.Fatalf("rejected submission must not leave a draft, got %+v", items)
	}
}

func TestAPISubmitWithoutProvidersIsUnavailable(t *testing.T) {
	d, store := newTestDaemon(t, testsupport.NewConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	w := serve(t, d, http.MethodPost, "/api/drafts", map[string]any{"text": scenarioBrief})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 (%s)", w.Code, w.Body.String())
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total() != 0 {
		t.Fatalf("expected no drafts, got %v", stats)
	}
}
