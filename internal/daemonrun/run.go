package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"jobdraft/internal/config"
	"jobdraft/internal/daemon"
	"jobdraft/internal/drafts"
	"jobdraft/internal/logging"
	"jobdraft/internal/providers"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	// Bind overrides paths.api_bind when set.
	Bind string
}

// Run starts the jobdraft daemon and blocks until cmdCtx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Bind != "" {
		cfg.Paths.APIBind = opts.Bind
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := checkProviders(logger, cfg); err != nil {
		return err
	}

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := drafts.Open(cfg)
	if err != nil {
		logger.Error("open draft store", logging.Error(err))
		return err
	}

	d, err := daemon.New(signalCtx, cfg, store, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("jobdraft daemon shutting down")
	return nil
}

// PIDPath returns the pid file written while the daemon runs.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "jobdraft.pid")
}

// ReadPID returns the pid recorded by a running daemon.
func ReadPID(cfg *config.Config) (int, bool) {
	data, err := os.ReadFile(PIDPath(cfg))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(string(trimNewline(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func trimNewline(data []byte) []byte {
	for len(data) > 0 && (data[len(data)-1] == '\n' || data[len(data)-1] == '\r') {
		data = data[:len(data)-1]
	}
	return data
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// checkProviders logs the provider snapshot and refuses to start when no
// provider is usable.
func checkProviders(logger *slog.Logger, cfg *config.Config) error {
	registry := providers.NewRegistryFromConfig(cfg)
	logger.Info("provider snapshot",
		logging.String(logging.FieldEventType, "provider_snapshot"),
		logging.Int("configured", len(registry.Diagnostics())),
		logging.Int("active", len(registry.Active())),
		logging.String("api_bind", cfg.Paths.APIBind),
	)
	if err := registry.Validate(); err != nil {
		logging.ErrorWithContext(logger, "no usable provider", "provider_config",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set OPENROUTER_API_KEY or fix [[providers]] in the config file"),
		)
		return fmt.Errorf("start daemon: %w", err)
	}
	return nil
}
