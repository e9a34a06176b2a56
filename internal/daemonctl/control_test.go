package daemonctl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/flock"

	"jobdraft/internal/api"
	"jobdraft/internal/testsupport"
)

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:7487":      "http://127.0.0.1:7487",
		"0.0.0.0:7487":        "http://127.0.0.1:7487",
		":7487":               "http://127.0.0.1:7487",
		"http://localhost:9/": "http://localhost:9",
		"daemon.internal:80":  "http://daemon.internal:80",
	}
	for bind, want := range cases {
		if got := baseURL(bind); got != want {
			t.Fatalf("baseURL(%q) = %q, want %q", bind, got, want)
		}
	}
}

func TestLockedReflectsHeldLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	locked, err := Locked(cfg)
	if err != nil || locked {
		t.Fatalf("Locked = %v, %v before any daemon", locked, err)
	}
	if _, err := Connect(context.Background(), cfg); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer held.Unlock()

	locked, err = Locked(cfg)
	if err != nil || !locked {
		t.Fatalf("Locked = %v, %v while held", locked, err)
	}
}

func TestClientDecodesResponses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"running":true,"databasePath":"/tmp/x.db","providers":[],"cooldown":{"active":false,"remainingSeconds":0},"inFlight":["d1"],"draftStats":{"pending":2}}`))
	})
	mux.HandleFunc("POST /api/drafts/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"draft not found: missing"}`))
			return
		}
		w.Write([]byte(`{"cancelled":true}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	ctx := context.Background()
	if err := client.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	want := api.StatusView{Running: true, DatabasePath: "/tmp/x.db"}
	if status.Running != want.Running || status.DatabasePath != want.DatabasePath || len(status.InFlight) != 1 || status.DraftStats["pending"] != 2 {
		t.Fatalf("unexpected status %+v", status)
	}

	cancelled, err := client.Cancel(ctx, "d1")
	if err != nil || !cancelled {
		t.Fatalf("Cancel = %v, %v", cancelled, err)
	}
	_, err = client.Cancel(ctx, "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "draft not found: missing" {
		t.Fatalf("expected APIError, got %v", err)
	}
}
