package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"jobdraft/internal/classify"
	"jobdraft/internal/config"
	"jobdraft/internal/drafts"
	"jobdraft/internal/eventlog"
	"jobdraft/internal/extract"
	"jobdraft/internal/fetch"
	"jobdraft/internal/invoker"
	"jobdraft/internal/llm"
	"jobdraft/internal/logging"
	"jobdraft/internal/services"
)

const (
	eventSource         = "orchestrator"
	maxFailureMessage   = 300
	defaultOwnerID      = "local"
	stageFetch          = "fetch"
	stageGenerate       = "generate"
	cancelledByUserNote = "generation cancelled by user"
	interruptedNote     = "generation interrupted before completion; retry the draft"
)

// Store is the draft persistence the orchestrator drives.
type Store interface {
	Create(ctx context.Context, input drafts.NewDraft) (*drafts.Draft, error)
	Get(ctx context.Context, id string) (*drafts.Draft, error)
	BeginProcessing(ctx context.Context, id string) (*drafts.Draft, error)
	Complete(ctx context.Context, id, generatedText, provider string) (*drafts.Draft, error)
	Fail(ctx context.Context, id string, failure drafts.Failure) (*drafts.Draft, error)
	ProcessingIn(ctx context.Context, conversation string) (*drafts.Draft, error)
	Delete(ctx context.Context, id string) error
}

// Generator produces text from a prompt.
type Generator interface {
	Invoke(ctx context.Context, req llm.Request, opts ...invoker.CallOption) (*invoker.Result, error)
}

// Fetcher retrieves reference postings.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// Submission is one user request to draft a job description.
type Submission struct {
	OwnerID        string
	ConversationID string
	Text           string
	// AskFollowUps returns follow-up questions instead of creating a draft
	// when the brief is missing standard fields and no answers are given.
	AskFollowUps    bool
	IncludeOptional bool
	// Answers maps follow-up field ids to the user's answers.
	Answers map[string]string
}

// Outcome reports what happened to a submission or generation.
type Outcome struct {
	Classification classify.Classification
	// Clarification is set when the input was not understood; no draft exists.
	Clarification string
	// FollowUps is set when answers are needed first; no draft exists.
	FollowUps []string
	Missing   []string
	Draft     *drafts.Draft
	Document  *extract.Document
	// Provider and Usage describe a successful generation.
	Provider string
	Usage    *llm.Usage
}

// NeedsInput reports whether the user must answer before a draft is created.
func (o *Outcome) NeedsInput() bool {
	return o != nil && o.Draft == nil && (o.Clarification != "" || len(o.FollowUps) > 0)
}

// Orchestrator runs the generation pipeline.
type Orchestrator struct {
	store         Store
	generator     Generator
	fetcher       Fetcher
	classifier    *classify.Classifier
	extractor     *extract.Extractor
	events        eventlog.Sink
	logger        *slog.Logger
	generation    config.Generation
	minConfidence float64
	providerCheck func() error

	mu       sync.Mutex
	inFlight map[string]context.CancelCauseFunc
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithFetcher enables reference link retrieval.
func WithFetcher(f Fetcher) Option {
	return func(o *Orchestrator) {
		o.fetcher = f
	}
}

// WithClassifier overrides the default classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithExtractor overrides the default extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.extractor = e
		}
	}
}

// WithEvents sets the event sink.
func WithEvents(sink eventlog.Sink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.events = sink
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logging.NewComponentLogger(logger, "orchestrator")
		}
	}
}

// WithGeneration sets sampling options passed to providers.
func WithGeneration(gen config.Generation) Option {
	return func(o *Orchestrator) {
		o.generation = gen
	}
}

// WithMinConfidence sets the confidence below which clarification is requested.
func WithMinConfidence(v float64) Option {
	return func(o *Orchestrator) {
		if v > 0 && v <= 1 {
			o.minConfidence = v
		}
	}
}

// WithProviderCheck sets the check run before a draft is created. A failing
// check rejects the submission so no draft is left to fail later.
func WithProviderCheck(check func() error) Option {
	return func(o *Orchestrator) {
		o.providerCheck = check
	}
}

// New constructs an Orchestrator.
func New(store Store, generator Generator, opts ...Option) *Orchestrator {
	defaults := config.Default()
	o := &Orchestrator{
		store:         store,
		generator:     generator,
		classifier:    classify.Default(),
		extractor:     extract.Default(),
		events:        eventlog.Nop{},
		logger:        logging.NewNop(),
		generation:    defaults.Generation,
		minConfidence: classify.ReliableConfidence,
		inFlight:      make(map[string]context.CancelCauseFunc),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Classifier exposes the classifier used for submissions.
func (o *Orchestrator) Classifier() *classify.Classifier {
	return o.classifier
}

// Extractor exposes the extractor used for completed drafts.
func (o *Orchestrator) Extractor() *extract.Extractor {
	return o.extractor
}

// Submit prepares sub and, when a draft was created, generates it.
// Submissions to a conversation with a processing draft are rejected with
// drafts.ErrDraftInFlight.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	out, err := o.Prepare(ctx, sub)
	if err != nil || out.Draft == nil {
		return out, err
	}
	gen, err := o.Generate(ctx, out.Draft.ID)
	if gen != nil {
		out.Draft = gen.Draft
		out.Document = gen.Document
		out.Provider = gen.Provider
		out.Usage = gen.Usage
	}
	return out, err
}

// Prepare classifies sub. Unreliable input yields a clarifying question and
// missing brief fields yield follow-up questions when requested; neither
// creates a draft or touches a provider. Otherwise a pending draft is
// created, unless no provider is usable or the conversation already has a
// processing draft.
func (o *Orchestrator) Prepare(ctx context.Context, sub Submission) (*Outcome, error) {
	cls := o.classifier.Classify(sub.Text)
	out := &Outcome{Classification: cls}
	logger := logging.WithContext(ctx, o.logger)

	if cls.Mode == classify.ModeUnknown || cls.Confidence < o.minConfidence {
		out.Clarification = classify.ClarifyingQuestion(cls)
		logger.Info("submission needs clarification",
			logging.String("mode", string(cls.Mode)),
			logging.Float64("confidence", cls.Confidence),
		)
		return out, nil
	}
	if sub.AskFollowUps && len(sub.Answers) == 0 {
		advice := o.classifier.Advise(cls, classify.AdviseOptions{IncludeOptional: sub.IncludeOptional})
		if len(advice.Questions) > 0 {
			out.FollowUps = advice.Questions
			out.Missing = advice.Missing
			logger.Info("submission needs follow-up answers", logging.Any("missing", advice.Missing))
			return out, nil
		}
	}

	if o.providerCheck != nil {
		if err := o.providerCheck(); err != nil {
			return nil, err
		}
	}
	conversation := strings.TrimSpace(sub.ConversationID)
	busy, err := o.store.ProcessingIn(ctx, conversation)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "submit", "check conversation", "", err)
	}
	if busy != nil {
		return nil, fmt.Errorf("%w (conversation %s, draft %s)", drafts.ErrDraftInFlight, conversation, busy.ID)
	}

	owner := strings.TrimSpace(sub.OwnerID)
	if owner == "" {
		owner = defaultOwnerID
	}
	draft, err := o.store.Create(ctx, drafts.NewDraft{
		OwnerID:        owner,
		ConversationID: conversation,
		InputType:      string(cls.Mode),
		RawInput:       appendAnswers(sub.Text, sub.Answers, o.classifier.FieldLabel),
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "submit", "create draft", "", err)
	}
	out.Draft = draft
	o.emitStatus(ctx, draft, "draft created")
	logger.Info("draft created",
		logging.DraftID(draft.ID),
		logging.String("mode", string(cls.Mode)),
	)
	return out, nil
}

// Retry regenerates a failed draft from its original input.
func (o *Orchestrator) Retry(ctx context.Context, draftID string) (*Outcome, error) {
	draft, err := o.store.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != drafts.StatusFailed {
		return nil, fmt.Errorf("%w: draft %s is %s; only failed drafts can be retried", drafts.ErrInvalidTransition, draftID, draft.Status)
	}
	return o.Generate(ctx, draftID)
}

// Generate runs one attempt for a pending or failed draft. Failures leave the
// draft failed and are returned alongside an Outcome carrying that draft.
func (o *Orchestrator) Generate(ctx context.Context, draftID string) (*Outcome, error) {
	attempt, err := o.Begin(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return attempt.Run()
}

// Attempt is a generation that has entered processing. Run must be called
// exactly once.
type Attempt struct {
	o      *Orchestrator
	ctx    context.Context
	cancel context.CancelCauseFunc
	draft  *drafts.Draft
}

// Draft returns the draft as it entered processing.
func (a *Attempt) Draft() *drafts.Draft {
	return a.draft
}

// Run generates the draft and records the outcome. The attempt stays
// cancellable through Cancel until Run returns.
func (a *Attempt) Run() (*Outcome, error) {
	defer a.cancel(nil)
	defer a.o.untrack(a.draft.ID)
	return a.o.run(a.ctx, a.draft)
}

// Begin moves draftID into processing and registers the attempt so Cancel
// can reach it. The attempt lives until ctx is done. A never-attempted
// pending draft that loses its conversation to another attempt is deleted.
func (o *Orchestrator) Begin(ctx context.Context, draftID string) (*Attempt, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	if !o.track(draftID, cancel) {
		cancel(nil)
		return nil, fmt.Errorf("%w: draft %s", drafts.ErrDraftInFlight, draftID)
	}
	draft, err := o.store.BeginProcessing(ctx, draftID)
	if err != nil {
		o.untrack(draftID)
		cancel(nil)
		if errors.Is(err, drafts.ErrDraftInFlight) {
			o.discardPending(context.WithoutCancel(ctx), draftID)
		}
		return nil, err
	}
	return &Attempt{o: o, ctx: ctx, cancel: cancel, draft: draft}, nil
}

func (o *Orchestrator) discardPending(ctx context.Context, draftID string) {
	draft, err := o.store.Get(ctx, draftID)
	if err != nil || draft.Status != drafts.StatusPending || draft.Attempts > 0 {
		return
	}
	if err := o.store.Delete(ctx, draftID); err != nil {
		logging.WarnWithContext(o.logger, "could not discard rejected draft", "draft_persistence",
			logging.DraftID(draftID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "draft stays pending until removed or retried"),
		)
		return
	}
	o.logger.Info("rejected draft discarded", logging.DraftID(draftID))
}

func (o *Orchestrator) run(ctx context.Context, draft *drafts.Draft) (*Outcome, error) {
	ctx = services.WithDraftID(ctx, draft.ID)
	ctx = services.WithConversationID(ctx, draft.ConversationID)
	logger := logging.WithContext(ctx, o.logger)
	o.emitStatus(ctx, draft, fmt.Sprintf("generation attempt %d started", draft.Attempts))

	cls := o.classifier.Classify(draft.RawInput)
	mode := classify.Mode(draft.InputType)
	switch mode {
	case classify.ModeBrief, classify.ModeReferenceLink, classify.ModeBriefWithLink:
	default:
		mode = cls.Mode
	}
	input := PromptInput{Mode: mode, Brief: cls.BriefText, URL: cls.URL}

	if cls.URL != "" && o.fetcher != nil {
		page, err := o.fetcher.Fetch(services.WithStage(ctx, stageFetch), cls.URL)
		switch {
		case err == nil:
			input.Reference = page
		case ctx.Err() != nil:
			return o.fail(ctx, draft, context.Cause(ctx))
		default:
			o.events.Log(ctx, o.event(ctx, eventlog.KindFetchFailure, err.Error()).With("url", cls.URL))
			if mode == classify.ModeReferenceLink {
				return o.fail(ctx, draft, err)
			}
			logging.WarnWithContext(logger, "reference fetch failed; continuing with brief", "fetch_failure",
				logging.String("url", cls.URL),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the link is publicly reachable"),
				logging.String(logging.FieldImpact, "draft generated from the brief only"),
			)
		}
	}

	req := BuildRequest(input, o.generation)
	result, err := o.generator.Invoke(services.WithStage(ctx, stageGenerate), req)
	if err != nil {
		if ctx.Err() != nil {
			err = context.Cause(ctx)
		}
		return o.fail(ctx, draft, err)
	}

	completed, err := o.store.Complete(context.WithoutCancel(ctx), draft.ID, result.Content, result.Provider)
	if err != nil {
		if completed == nil {
			return o.fail(ctx, draft, err)
		}
		o.emitStatus(ctx, completed, completed.ErrorMessage)
		return &Outcome{Classification: cls, Draft: completed, Provider: result.Provider, Usage: result.Usage}, err
	}
	doc := o.extractor.Extract(completed.GeneratedText)
	o.emitStatus(ctx, completed, fmt.Sprintf("generated by %s", result.Provider))
	logger.Info("draft completed",
		logging.Provider(result.Provider),
		logging.String("title", doc.Title),
		logging.Int("sections", len(doc.Sections)),
	)
	return &Outcome{
		Classification: cls,
		Draft:          completed,
		Document:       &doc,
		Provider:       result.Provider,
		Usage:          result.Usage,
	}, nil
}

// Document extracts the structured document of a completed draft.
func (o *Orchestrator) Document(ctx context.Context, draftID string) (*drafts.Draft, *extract.Document, error) {
	draft, err := o.store.Get(ctx, draftID)
	if err != nil {
		return nil, nil, err
	}
	if draft.Status != drafts.StatusCompleted {
		return draft, nil, fmt.Errorf("%w: draft %s is %s", services.ErrNotFound, draftID, draft.Status)
	}
	doc := o.extractor.Extract(draft.GeneratedText)
	return draft, &doc, nil
}

// Cancel abandons the in-flight attempt for draftID. The draft fails with
// the cancelled kind once the attempt unwinds. It reports whether an attempt
// was running.
func (o *Orchestrator) Cancel(draftID string) bool {
	o.mu.Lock()
	cancel, ok := o.inFlight[draftID]
	o.mu.Unlock()
	if ok {
		cancel(fmt.Errorf("%w: %s", services.ErrCancelled, cancelledByUserNote))
	}
	return ok
}

// InFlight lists the drafts with a running attempt.
func (o *Orchestrator) InFlight() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.inFlight))
	for id := range o.inFlight {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (o *Orchestrator) track(id string, cancel context.CancelCauseFunc) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[id]; busy {
		return false
	}
	o.inFlight[id] = cancel
	return true
}

func (o *Orchestrator) untrack(id string) {
	o.mu.Lock()
	delete(o.inFlight, id)
	o.mu.Unlock()
}

func (o *Orchestrator) fail(ctx context.Context, draft *drafts.Draft, cause error) (*Outcome, error) {
	logger := logging.WithContext(ctx, o.logger)
	failure := drafts.Failure{Kind: services.FailureKind(cause), Message: failureMessage(cause)}
	failed, err := o.store.Fail(context.WithoutCancel(ctx), draft.ID, failure)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to record draft failure", "draft_persistence",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database permissions and disk space"),
		)
		return nil, errors.Join(cause, err)
	}
	var cooldown *invoker.CooldownError
	if errors.As(cause, &cooldown) {
		o.events.Log(ctx, o.event(ctx, eventlog.KindCooldownActive, failure.Message).
			With("remaining", cooldown.Remaining.Round(time.Second).String()))
	}
	o.emitStatus(ctx, failed, failure.Message)
	logger.Info("draft failed",
		logging.FailureClass(string(failure.Kind)),
		logging.String("reason", failure.Message),
	)
	return &Outcome{Draft: failed}, cause
}

// failureMessage renders cause for the user.
func failureMessage(cause error) string {
	var (
		cooldown  *invoker.CooldownError
		exhausted *invoker.ExhaustedError
	)
	var message string
	switch {
	case errors.As(cause, &cooldown):
		message = fmt.Sprintf("providers are cooling down after rate limiting; try again in %s", cooldown.Remaining.Round(time.Second))
	case errors.As(cause, &exhausted):
		message = exhausted.Error()
	case errors.Is(cause, services.ErrCancelled):
		message = cancelledByUserNote
	case errors.Is(cause, context.Canceled):
		message = interruptedNote
	case errors.Is(cause, services.ErrFetch):
		message = "could not retrieve the reference posting: " + cause.Error()
	case errors.Is(cause, services.ErrConfiguration):
		message = "provider configuration is invalid: " + cause.Error()
	default:
		message = cause.Error()
	}
	return eventlog.Truncate(message, maxFailureMessage)
}

func (o *Orchestrator) event(ctx context.Context, kind, message string) eventlog.Event {
	ev := eventlog.New(kind, eventSource, message)
	if id, ok := services.DraftIDFromContext(ctx); ok {
		ev = ev.WithDraft(id)
	}
	return ev
}

func (o *Orchestrator) emitStatus(ctx context.Context, draft *drafts.Draft, message string) {
	if draft == nil {
		return
	}
	ev := eventlog.New(eventlog.KindDraftStatus, eventSource, message).
		WithDraft(draft.ID).
		With("status", string(draft.Status)).
		With("attempts", strconv.Itoa(draft.Attempts))
	if draft.FailureKind != "" {
		ev = ev.With("failure_kind", string(draft.FailureKind))
	}
	if draft.Provider != "" {
		ev = ev.With("provider", draft.Provider)
	}
	o.events.Log(ctx, ev)
}
