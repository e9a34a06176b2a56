package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"jobdraft/internal/classify"
	"jobdraft/internal/config"
	"jobdraft/internal/drafts"
	"jobdraft/internal/eventlog"
	"jobdraft/internal/extract"
	"jobdraft/internal/fetch"
	"jobdraft/internal/invoker"
	"jobdraft/internal/logging"
	"jobdraft/internal/providers"
	"jobdraft/internal/ratelimit"
)

// Stack is the generation pipeline wired from configuration.
type Stack struct {
	Registry     *providers.Registry
	Tracker      *ratelimit.Tracker
	Invoker      *invoker.Invoker
	Orchestrator *Orchestrator
	Events       eventlog.Sink
}

// NewStack wires providers, the persisted rate-limit tracker, the invoker,
// the fetcher, and the orchestrator. Events go to the log, the store, and any
// extra sinks. A registry without active providers is not an error here;
// submissions are rejected until one is configured.
func NewStack(ctx context.Context, cfg *config.Config, store *drafts.Store, logger *slog.Logger, sinks ...eventlog.Sink) (*Stack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("stack: config is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("stack: store is nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	events := eventlog.Multi(append([]eventlog.Sink{
		eventlog.NewSlogSink(logger),
		eventlog.NewStoreSink(store, logger),
	}, sinks...)...)

	state, err := store.LoadRateLimitState(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "could not load rate limit state; starting without cooldown", "rate_limit_state",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a previous cooldown may be ignored"),
		)
		state = ratelimit.State{}
	}
	tracker := ratelimit.NewTracker(
		ratelimit.WithState(state),
		ratelimit.WithPersister(store),
		ratelimit.WithLogger(logger),
	)

	registry := providers.NewRegistryFromConfig(cfg)
	for _, diag := range registry.Diagnostics() {
		if !diag.Valid {
			logging.WarnWithContext(logger, "provider excluded", "provider_config",
				logging.Provider(diag.Name),
				logging.String("reason", diag.Reason),
				logging.String(logging.FieldErrorHint, "fix the credential in the config file or environment"),
				logging.String(logging.FieldImpact, "provider skipped during generation"),
			)
		}
	}

	inv := invoker.New(registry, providers.NewClients(providers.WithLogger(logger)), tracker,
		invoker.WithAttemptTimeout(cfg.AttemptTimeout()),
		invoker.WithDefaultCooldown(cfg.DefaultCooldown()),
		invoker.WithEvents(events),
		invoker.WithLogger(logger),
	)

	extractor, err := newExtractor(cfg)
	if err != nil {
		return nil, err
	}
	classifier := classify.Default()

	orch := New(store, inv,
		WithFetcher(fetch.NewFromConfig(cfg)),
		WithClassifier(classifier),
		WithExtractor(extractor),
		WithEvents(events),
		WithLogger(logger),
		WithGeneration(cfg.Generation),
		WithMinConfidence(cfg.Classifier.MinConfidence),
		WithProviderCheck(registry.Validate),
	)
	return &Stack{
		Registry:     registry,
		Tracker:      tracker,
		Invoker:      inv,
		Orchestrator: orch,
		Events:       events,
	}, nil
}

func newExtractor(cfg *config.Config) (*extract.Extractor, error) {
	if cfg.Extraction.VocabularyPath == "" {
		return extract.Default(), nil
	}
	vocab, err := extract.LoadVocabularyFile(cfg.Extraction.VocabularyPath)
	if err != nil {
		return nil, fmt.Errorf("extraction.vocabulary_path: %w", err)
	}
	return extract.New(vocab)
}
