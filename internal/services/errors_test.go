package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"jobdraft/internal/drafts"
	"jobdraft/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrProvider, "generate", "invoke", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"generate", "invoke", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureKindMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want drafts.FailureKind
	}{
		{"rate limited", services.Wrap(services.ErrRateLimited, "generate", "invoke", "all providers rate limited", nil), drafts.FailureRateLimited},
		{"cancelled marker", services.Wrap(services.ErrCancelled, "generate", "invoke", "", nil), drafts.FailureCancelled},
		{"context canceled", fmt.Errorf("invoke: %w", context.Canceled), drafts.FailureInterrupted},
		{"cancel cause wins", fmt.Errorf("%w: stop: %w", services.ErrCancelled, context.Canceled), drafts.FailureCancelled},
		{"configuration", services.Wrap(services.ErrConfiguration, "submit", "providers", "", nil), drafts.FailureConfiguration},
		{"fetch", services.Wrap(services.ErrFetch, "generate", "fetch", "", errors.New("dns")), drafts.FailureFetch},
		{"too short", fmt.Errorf("complete: %w", drafts.ErrGeneratedTextTooShort), drafts.FailureTooShort},
		{"provider", services.Wrap(services.ErrProvider, "generate", "invoke", "", nil), drafts.FailureProvider},
		{"nil", nil, drafts.FailureProvider},
	}
	for _, tc := range cases {
		if got := services.FailureKind(tc.err); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}
