package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"jobdraft/internal/config"
	"jobdraft/internal/llm"
	"jobdraft/internal/providers"
	"jobdraft/internal/testsupport"
)

type stubCompleter struct {
	content string
	err     error
	calls   int
}

func (s *stubCompleter) Complete(context.Context, providers.ProviderConfig, llm.Request) (*llm.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Result{Content: s.content}, nil
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckProvider(t *testing.T) {
	p := providers.ProviderConfig{Name: "primary"}

	ok := CheckProvider(context.Background(), &stubCompleter{content: "OK"}, p)
	if !ok.Passed {
		t.Fatalf("expected pass, got: %s", ok.Detail)
	}

	empty := CheckProvider(context.Background(), &stubCompleter{content: "  "}, p)
	if empty.Passed || empty.Detail != "empty response" {
		t.Fatalf("unexpected result %+v", empty)
	}

	timeout := CheckProvider(context.Background(), &stubCompleter{err: context.DeadlineExceeded}, p)
	if timeout.Passed || timeout.Detail != "check timed out (provider unresponsive)" {
		t.Fatalf("unexpected result %+v", timeout)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithChatProvider("primary", "http://127.0.0.1:1", 10))
	cfg.Providers = append(cfg.Providers, config.Provider{Name: "broken", Kind: config.KindOpenAI, Model: "m", Priority: 20})
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	stub := &stubCompleter{content: "OK"}
	results := RunAll(context.Background(), cfg, Options{Live: true, Client: stub})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %+v", results)
	}
	if !results[0].Passed || !results[1].Passed {
		t.Fatalf("expected directory checks to pass: %+v", results[:2])
	}
	if !results[2].Passed || results[3].Passed {
		t.Fatalf("expected primary valid and broken excluded: %+v", results[2:4])
	}
	if !results[4].Passed || stub.calls != 1 {
		t.Fatalf("expected one live check for the active provider, got %+v (calls %d)", results[4], stub.calls)
	}
	if Passed(results) {
		t.Fatal("expected overall failure with an excluded provider")
	}

	stub.err = errors.New("401 unauthorized")
	results = RunAll(context.Background(), cfg, Options{})
	if len(results) != 4 || stub.calls != 1 {
		t.Fatalf("expected no live checks without Live, got %d results", len(results))
	}
}
