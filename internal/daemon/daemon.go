package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"jobdraft/internal/api"
	"jobdraft/internal/config"
	"jobdraft/internal/drafts"
	"jobdraft/internal/eventlog"
	"jobdraft/internal/logging"
	"jobdraft/internal/notifications"
	"jobdraft/internal/orchestrator"
)

// ErrNotRunning reports a request that needs a started daemon.
var ErrNotRunning = errors.New("daemon is not running")

// Daemon serves the generation pipeline over HTTP and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *drafts.Store
	stack  *orchestrator.Stack
	bus    *eventlog.Bus
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	work    sync.WaitGroup
}

// New constructs a daemon with the pipeline wired from cfg.
func New(ctx context.Context, cfg *config.Config, store *drafts.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	bus := eventlog.NewBus()
	notifier := notifications.NewSink(notifications.NewService(cfg), logger)
	stack, err := orchestrator.NewStack(ctx, cfg, store, logger, bus, notifier)
	if err != nil {
		return nil, fmt.Errorf("wire pipeline: %w", err)
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		stack:    stack,
		bus:      bus,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg.Paths.APIBind, d, logger)
	return d, nil
}

// Start acquires the daemon lock, fails drafts orphaned by a previous
// process, and starts the API server when a bind address is configured.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another jobdraft daemon instance is already running")
	}

	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	runCtx := d.ctx
	d.mu.Unlock()

	d.recoverOrphans(runCtx)

	if err := d.api.start(runCtx); err != nil {
		d.cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("jobdraft daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()),
	)
	return nil
}

// Stop cancels in-flight generations, waits for them to record their
// outcome, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()
	d.api.stop()
	d.work.Wait()

	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start reports a running instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("jobdraft daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr returns the API listener address, or "" when the server is disabled.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Orchestrator exposes the wired pipeline.
func (d *Daemon) Orchestrator() *orchestrator.Orchestrator {
	return d.stack.Orchestrator
}

// Submit classifies and records sub. When a draft is created it enters
// processing before Submit returns and generation continues in the
// background. Rejections leave no draft behind.
func (d *Daemon) Submit(ctx context.Context, sub orchestrator.Submission) (*orchestrator.Outcome, error) {
	runCtx, err := d.runContext()
	if err != nil {
		return nil, err
	}
	out, err := d.stack.Orchestrator.Prepare(ctx, sub)
	if err != nil || out.Draft == nil {
		return out, err
	}
	attempt, err := d.stack.Orchestrator.Begin(runCtx, out.Draft.ID)
	if err != nil {
		return nil, err
	}
	out.Draft = attempt.Draft()
	d.launch(attempt)
	return out, nil
}

// Retry schedules a new attempt for a failed draft.
func (d *Daemon) Retry(ctx context.Context, id string) (*drafts.Draft, error) {
	draft, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.Status != drafts.StatusFailed {
		return draft, fmt.Errorf("%w: draft %s is %s; only failed drafts can be retried", drafts.ErrInvalidTransition, id, draft.Status)
	}
	runCtx, err := d.runContext()
	if err != nil {
		return draft, err
	}
	attempt, err := d.stack.Orchestrator.Begin(runCtx, id)
	if err != nil {
		return draft, err
	}
	d.launch(attempt)
	return attempt.Draft(), nil
}

// Cancel abandons the running attempt for id.
func (d *Daemon) Cancel(id string) bool {
	return d.stack.Orchestrator.Cancel(id)
}

// Delete removes a draft that is not being generated.
func (d *Daemon) Delete(ctx context.Context, id string) error {
	return d.store.Delete(ctx, id)
}

func (d *Daemon) runContext() (context.Context, error) {
	d.mu.Lock()
	runCtx := d.ctx
	d.mu.Unlock()
	if runCtx == nil || runCtx.Err() != nil {
		return nil, ErrNotRunning
	}
	return runCtx, nil
}

func (d *Daemon) launch(attempt *orchestrator.Attempt) {
	id := attempt.Draft().ID
	d.work.Add(1)
	go func() {
		defer d.work.Done()
		if _, err := attempt.Run(); err != nil {
			d.logger.Info("generation finished with error",
				logging.DraftID(id),
				logging.Error(err),
			)
		}
	}()
}

func (d *Daemon) recoverOrphans(ctx context.Context) {
	orphaned, err := d.store.List(ctx, drafts.ListFilter{Statuses: []drafts.Status{drafts.StatusProcessing}})
	if err != nil {
		logging.WarnWithContext(d.logger, "could not list interrupted drafts", "orphan_recovery",
			logging.Error(err),
			logging.String(logging.FieldImpact, "drafts may remain processing until retried"),
		)
		return
	}
	if len(orphaned) == 0 {
		return
	}
	n, err := d.store.FailOrphanedProcessing(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "could not fail interrupted drafts", "orphan_recovery",
			logging.Error(err),
			logging.String(logging.FieldImpact, "drafts may remain processing until retried"),
		)
		return
	}
	for _, draft := range orphaned {
		d.stack.Events.Log(ctx, eventlog.New(eventlog.KindDraftInterrupted, "daemon",
			"generation interrupted before completion").WithDraft(draft.ID))
	}
	d.logger.Info("interrupted drafts failed", logging.Int("count", int(n)))
}

// Status summarizes runtime state.
func (d *Daemon) Status(ctx context.Context) (api.StatusView, error) {
	svc := api.NewDraftService(d.store)
	stats, err := svc.Stats(ctx)
	if err != nil {
		return api.StatusView{}, err
	}
	inFlight := d.stack.Orchestrator.InFlight()
	return api.StatusView{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Providers:    api.FromDiagnostics(d.stack.Registry.Diagnostics()),
		Cooldown:     api.FromRateLimitState(d.stack.Tracker.Snapshot(), time.Now()),
		InFlight:     inFlight,
		DraftStats:   stats,
	}, nil
}

func normalizeFormat(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
