package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"jobdraft/internal/classify"
	"jobdraft/internal/drafts"
	"jobdraft/internal/eventlog"
	"jobdraft/internal/fetch"
	"jobdraft/internal/invoker"
	"jobdraft/internal/llm"
	"jobdraft/internal/providers"
	"jobdraft/internal/services"
	"jobdraft/internal/testsupport"
)

const (
	scenarioBrief    = "We need a field coordinator with 3 years humanitarian response experience in Kenya."
	briefWithLink    = "Looking for a program manager, remote, full-time, 5+ years. https://ngo.org/jobs/123"
	referenceOnlyURL = "https://example.org/careers/field-officer"
)

type fakeGenerator struct {
	mu       sync.Mutex
	requests []llm.Request
	respond  func(ctx context.Context, req llm.Request) (*invoker.Result, error)
}

func (g *fakeGenerator) Invoke(ctx context.Context, req llm.Request, _ ...invoker.CallOption) (*invoker.Result, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.respond(ctx, req)
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *fakeGenerator) lastUserPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		return ""
	}
	msgs := g.requests[len(g.requests)-1].Messages
	return msgs[len(msgs)-1].Content
}

func respondWith(content string) func(context.Context, llm.Request) (*invoker.Result, error) {
	return func(context.Context, llm.Request) (*invoker.Result, error) {
		return &invoker.Result{Content: content, Provider: "primary", Model: "test/model"}, nil
	}
}

func failWith(err error) func(context.Context, llm.Request) (*invoker.Result, error) {
	return func(context.Context, llm.Request) (*invoker.Result, error) {
		return nil, err
	}
}

type fakeFetcher struct {
	page  *fetch.Page
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*fetch.Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	page := *f.page
	page.URL = rawURL
	return &page, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []eventlog.Event
}

func (s *recordingSink) Log(_ context.Context, ev eventlog.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind)
	}
	return out
}

func newTestOrchestrator(t *testing.T, gen *fakeGenerator, opts ...Option) (*Orchestrator, *drafts.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	return New(store, gen, opts...), store
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func TestPrepareAsksForClarification(t *testing.T) {
	gen := &fakeGenerator{respond: respondWith(testsupport.SamplePosting)}
	orch, store := newTestOrchestrator(t, gen)

	for _, input := range []string{"hi", "need a driver asap", "   "} {
		out, err := orch.Submit(context.Background(), Submission{Text: input})
		if err != nil {
			t.Fatalf("%q: unexpected error %v", input, err)
		}
		if out.Clarification == "" || out.Draft != nil || !out.NeedsInput() {
			t.Fatalf("%q: expected clarification without draft, got %+v", input, out)
		}
	}
	if gen.calls() != 0 {
		t.Fatalf("generator called %d times", gen.calls())
	}
	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total() != 0 {
		t.Fatalf("expected no drafts, got %v", stats)
	}
}

func TestPrepareReturnsFollowUps(t *testing.T) {
	gen := &fakeGenerator{respond: respondWith(testsupport.SamplePosting)}
	orch, _ := newTestOrchestrator(t, gen)

	out, err := orch.Submit(context.Background(), Submission{Text: scenarioBrief, AskFollowUps: true})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Draft != nil || len(out.FollowUps) != 2 {
		t.Fatalf("expected two follow-ups and no draft, got %+v", out)
	}
	if !contains(out.Missing, "contract_type") || !contains(out.Missing, "organization") {
		t.Fatalf("missing = %v", out.Missing)
	}
	if gen.calls() != 0 {
		t.Fatal("generator must not be called while follow-ups are pending")
	}
}

func TestSubmitGeneratesDraft(t *testing.T) {
	gen := &fakeGenerator{respond: respondWith(testsupport.SamplePosting)}
	sink := &recordingSink{}
	orch, _ := newTestOrchestrator(t, gen, WithEvents(sink))

	out, err := orch.Submit(context.Background(), Submission{OwnerID: "u1", ConversationID: "c1", Text: scenarioBrief})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Draft == nil || out.Draft.Status != drafts.StatusCompleted {
		t.Fatalf("expected completed draft, got %+v", out.Draft)
	}
	if out.Draft.InputType != string(classify.ModeBrief) || out.Draft.Provider != "primary" {
		t.Fatalf("draft = %+v", out.Draft)
	}
	if out.Document == nil || out.Document.Title != "Field Coordinator" {
		t.Fatalf("document = %+v", out.Document)
	}
	if !strings.Contains(gen.lastUserPrompt(), scenarioBrief) {
		t.Fatalf("prompt missing brief: %q", gen.lastUserPrompt())
	}
	statuses := 0
	for _, kind := range sink.kinds() {
		if kind == eventlog.KindDraftStatus {
			statuses++
		}
	}
	if statuses != 3 {
		t.Fatalf("expected created, processing, completed status events, got %v", sink.kinds())
	}
}

func TestSubmitAppendsAnswers(t *testing.T) {
	gen := &fakeGenerator{respond: respondWith(testsupport.SamplePosting)}
	orch, _ := newTestOrchestrator(t, gen)

	out, err := orch.Submit(context.Background(), Submission{
		Text:         scenarioBrief,
		AskFollowUps: true,
		Answers:      map[string]string{"organization": "Relief Org", "contract_type": "12-month fixed-term contract"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	want := "Additional details:\n- contract type: 12-month fixed-term contract\n- organization: Relief Org"
	if !strings.HasSuffix(out.Draft.RawInput, want) {
		t.Fatalf("raw input = %q", out.Draft.RawInput)
	}
	if !strings.Contains(gen.lastUserPrompt(), "Relief Org") {
		t.Fatalf("prompt missing answers: %q", gen.lastUserPrompt())
	}
}

func TestReferenceLinkFetchFailureFailsDraft(t *testing.T) {
	gen := &fakeGenerator{respond: respondWith(testsupport.SamplePosting)}
	fetcher := &fakeFetcher{err: services.Wrap(services.ErrFetch, "fetch", "request", "example.org returned 404 Not Found", nil)}
	sink := &recordingSink{}
	orch, _ := newTestOrchestrator(t, gen, WithFetcher(fetcher), WithEvents(sink))

	out, err := orch.Submit(context.Background(), Submission{Text: referenceOnlyURL})
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if out.Draft.Status != drafts.StatusFailed || out.Draft.FailureKind != drafts.FailureFetch {
		t.Fatalf("draft = %+v", out.Draft)
	}
	if gen.calls() != 0 {
		t.Fatal("generator must not run without the reference posting")
	}
	if !contains(sink.kinds(), eventlog.KindFetchFailure) {
		t.Fatalf("events = %v", sink.kinds())
	}
}

func TestBriefWithLinkContinuesWhenFetchFails(t *testing.T) {
	gen := &fakeGenerator{respond: respondWith(testsupport.SamplePosting)}
	fetcher := &fakeFetcher{err: services.Wrap(services.ErrFetch, "fetch", "request", "timeout", nil)}
	orch, _ := newTestOrchestrator(t, gen, WithFetcher(fetcher))

	out, err := orch.Submit(context.Background(), Submission{Text: briefWithLink})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Draft.Status != drafts.StatusCompleted {
		t.Fatalf("draft = %+v", out.Draft)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch calls = %d", fetcher.calls)
	}
	if !strings.Contains(gen.lastUserPrompt(), "could not be retrieved") {
		t.Fatalf("prompt = %q", gen.lastUserPrompt())
	}
}

func TestReferenceLinkUsesFetchedPage(t *testing.T) {
	gen := &fakeGenerator{respond: respondWith(testsupport.SamplePosting)}
	fetcher := &fakeFetcher{page: &fetch.Page{Title: "Field Officer", Text: "Field Officer\nCoordinate distributions in Goma."}}
	orch, _ := newTestOrchestrator(t, gen, WithFetcher(fetcher))

	if _, err := orch.Submit(context.Background(), Submission{Text: referenceOnlyURL}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	prompt := gen.lastUserPrompt()
	for _, want := range []string{"Rewrite the reference job posting", "Coordinate distributions in Goma.", referenceOnlyURL} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q: %q", want, prompt)
		}
	}
}

func TestGenerationFailuresMapToKinds(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		kind    drafts.FailureKind
		message string
	}{
		{
			name:    "cooldown",
			err:     &invoker.CooldownError{Remaining: 45 * time.Second},
			kind:    drafts.FailureRateLimited,
			message: "try again in 45s",
		},
		{
			name: "all rate limited",
			err: &invoker.ExhaustedError{Attempts: []invoker.Attempt{
				{Provider: "a", Class: invoker.FailureRateLimited},
				{Provider: "b", Class: invoker.FailureRateLimited},
			}},
			kind:    drafts.FailureRateLimited,
			message: "all providers rate limited",
		},
		{
			name: "mixed failures",
			err: &invoker.ExhaustedError{Attempts: []invoker.Attempt{
				{Provider: "a", Class: invoker.FailureServer},
				{Provider: "b", Class: invoker.FailureRateLimited},
			}},
			kind:    drafts.FailureProvider,
			message: "all providers failed",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{respond: failWith(tc.err)}
			orch, _ := newTestOrchestrator(t, gen)
			out, err := orch.Submit(context.Background(), Submission{Text: scenarioBrief})
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if out.Draft.Status != drafts.StatusFailed || out.Draft.FailureKind != tc.kind {
				t.Fatalf("draft = %+v", out.Draft)
			}
			if !strings.Contains(out.Draft.ErrorMessage, tc.message) {
				t.Fatalf("error message = %q", out.Draft.ErrorMessage)
			}
			if out.Draft.RateLimited() != (tc.kind == drafts.FailureRateLimited) {
				t.Fatalf("RateLimited() = %v", out.Draft.RateLimited())
			}
		})
	}
}

func TestShortGenerationFailsDraft(t *testing.T) {
	gen := &fakeGenerator{respond: respondWith("# Too short\n\nNot enough text to be useful.")}
	orch, _ := newTestOrchestrator(t, gen)

	out, err := orch.Submit(context.Background(), Submission{Text: scenarioBrief})
	if !errors.Is(err, drafts.ErrGeneratedTextTooShort) {
		t.Fatalf("expected too-short error, got %v", err)
	}
	if out.Draft.Status != drafts.StatusFailed || out.Draft.FailureKind != drafts.FailureTooShort {
		t.Fatalf("draft = %+v", out.Draft)
	}
	if out.Document != nil {
		t.Fatal("no document expected for a failed draft")
	}
}

func blockingGenerator(started chan<- struct{}) *fakeGenerator {
	return &fakeGenerator{respond: func(ctx context.Context, _ llm.Request) (*invoker.Result, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}}
}

func TestCancelFailsDraftAsCancelled(t *testing.T) {
	started := make(chan struct{}, 1)
	orch, store := newTestOrchestrator(t, blockingGenerator(started))
	prepared, err := orch.Prepare(context.Background(), Submission{Text: scenarioBrief})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	id := prepared.Draft.ID

	type result struct {
		out *Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := orch.Generate(context.Background(), id)
		done <- result{out, err}
	}()
	<-started

	if got := orch.InFlight(); len(got) != 1 || got[0] != id {
		t.Fatalf("in flight = %v", got)
	}
	if _, err := orch.Generate(context.Background(), id); !errors.Is(err, drafts.ErrDraftInFlight) {
		t.Fatalf("expected in-flight rejection, got %v", err)
	}
	if !orch.Cancel(id) {
		t.Fatal("Cancel should find the running attempt")
	}

	res := <-done
	if !errors.Is(res.err, services.ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", res.err)
	}
	draft, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if draft.Status != drafts.StatusFailed || draft.FailureKind != drafts.FailureCancelled {
		t.Fatalf("draft = %+v", draft)
	}
	if len(orch.InFlight()) != 0 {
		t.Fatalf("in flight after cancel = %v", orch.InFlight())
	}
	if orch.Cancel(id) {
		t.Fatal("Cancel after completion should report false")
	}
}

func TestOneAttemptPerConversation(t *testing.T) {
	started := make(chan struct{}, 1)
	orch, store := newTestOrchestrator(t, blockingGenerator(started))
	first, err := orch.Prepare(context.Background(), Submission{ConversationID: "conv", Text: scenarioBrief})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	second, err := orch.Prepare(context.Background(), Submission{ConversationID: "conv", Text: scenarioBrief})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := orch.Generate(context.Background(), first.Draft.ID)
		done <- err
	}()
	<-started

	if _, err := orch.Generate(context.Background(), second.Draft.ID); !errors.Is(err, drafts.ErrDraftInFlight) {
		t.Fatalf("expected ErrDraftInFlight, got %v", err)
	}
	if _, err := store.Get(context.Background(), second.Draft.ID); !errors.Is(err, drafts.ErrNotFound) {
		t.Fatalf("losing pending draft should be discarded, got %v", err)
	}
	orch.Cancel(first.Draft.ID)
	<-done
}

func TestSubmitRejectedWhileConversationBusy(t *testing.T) {
	started := make(chan struct{}, 1)
	gen := blockingGenerator(started)
	orch, store := newTestOrchestrator(t, gen)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := orch.Submit(ctx, Submission{ConversationID: "c1", Text: scenarioBrief})
		done <- err
	}()
	<-started

	out, err := orch.Submit(ctx, Submission{ConversationID: "c1", Text: scenarioBrief})
	if !errors.Is(err, drafts.ErrDraftInFlight) {
		t.Fatalf("expected ErrDraftInFlight, got %v", err)
	}
	if out != nil {
		t.Fatalf("rejected submission returned %+v", out)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total() != 1 || stats[drafts.StatusPending] != 0 {
		t.Fatalf("stats = %v", stats)
	}
	if gen.calls() != 1 {
		t.Fatalf("generator calls = %d", gen.calls())
	}

	other, err := orch.Prepare(ctx, Submission{ConversationID: "c2", Text: scenarioBrief})
	if err != nil || other.Draft == nil {
		t.Fatalf("other conversation should not be blocked: %v", err)
	}
	for _, id := range orch.InFlight() {
		orch.Cancel(id)
	}
	<-done
}

func TestParentCancellationInterruptsDraft(t *testing.T) {
	started := make(chan struct{}, 1)
	orch, _ := newTestOrchestrator(t, blockingGenerator(started))
	ctx, cancel := context.WithCancel(context.Background())

	type result struct {
		out *Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := orch.Submit(ctx, Submission{Text: scenarioBrief})
		done <- result{out, err}
	}()
	<-started
	cancel()

	res := <-done
	if !errors.Is(res.err, context.Canceled) || errors.Is(res.err, services.ErrCancelled) {
		t.Fatalf("expected a plain context cancellation, got %v", res.err)
	}
	draft := res.out.Draft
	if draft.Status != drafts.StatusFailed || draft.FailureKind != drafts.FailureInterrupted {
		t.Fatalf("draft = %+v", draft)
	}
	if draft.ErrorMessage != interruptedNote || draft.Cancelled() {
		t.Fatalf("error message = %q", draft.ErrorMessage)
	}
}

func TestProviderCheckRejectsBeforeDraft(t *testing.T) {
	gen := &fakeGenerator{respond: respondWith(testsupport.SamplePosting)}
	orch, store := newTestOrchestrator(t, gen, WithProviderCheck(func() error {
		return providers.ErrConfigurationInvalid
	}))

	out, err := orch.Submit(context.Background(), Submission{Text: scenarioBrief})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if out != nil || gen.calls() != 0 {
		t.Fatalf("outcome = %+v, calls = %d", out, gen.calls())
	}
	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total() != 0 {
		t.Fatalf("no draft should be created, got %v", stats)
	}
	if got := services.FailureKind(err); got != drafts.FailureConfiguration {
		t.Fatalf("failure kind = %q", got)
	}
}

func TestRetryRegeneratesFailedDraft(t *testing.T) {
	gen := &fakeGenerator{respond: failWith(&invoker.CooldownError{Remaining: time.Minute})}
	orch, _ := newTestOrchestrator(t, gen)

	out, err := orch.Submit(context.Background(), Submission{Text: scenarioBrief})
	if err == nil {
		t.Fatal("expected the first attempt to fail")
	}
	id := out.Draft.ID

	gen.mu.Lock()
	gen.respond = respondWith(testsupport.SamplePosting)
	gen.mu.Unlock()

	retried, err := orch.Retry(context.Background(), id)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Draft.Status != drafts.StatusCompleted || retried.Draft.Attempts != 2 || retried.Draft.ErrorMessage != "" {
		t.Fatalf("draft = %+v", retried.Draft)
	}
	if !strings.Contains(gen.lastUserPrompt(), scenarioBrief) {
		t.Fatal("retry must reuse the original input")
	}
	if _, err := orch.Retry(context.Background(), id); !errors.Is(err, drafts.ErrInvalidTransition) {
		t.Fatalf("retrying a completed draft: %v", err)
	}
}

func TestDocumentRequiresCompletedDraft(t *testing.T) {
	gen := &fakeGenerator{respond: respondWith(testsupport.SamplePosting)}
	orch, _ := newTestOrchestrator(t, gen)
	prepared, err := orch.Prepare(context.Background(), Submission{Text: scenarioBrief})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, _, err := orch.Document(context.Background(), prepared.Draft.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("pending draft document: %v", err)
	}
	if _, err := orch.Generate(context.Background(), prepared.Draft.ID); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, doc, err := orch.Document(context.Background(), prepared.Draft.ID)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if _, ok := doc.Section("responsibilities"); !ok {
		t.Fatalf("sections = %+v", doc.Sections)
	}
}
