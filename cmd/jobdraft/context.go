package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"jobdraft/internal/config"
	"jobdraft/internal/drafts"
	"jobdraft/internal/logging"
	"jobdraft/internal/orchestrator"
)

const cliLogLevel = "warn"

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	store *drafts.Store
	stack *orchestrator.Stack
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevel(fallback string) string {
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		return strings.TrimSpace(*c.logLevelFlag)
	}
	return fallback
}

// logger returns a stderr logger quieter than the daemon's so command output
// stays readable.
func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	local := *cfg
	local.Logging.Level = c.logLevel(cliLogLevel)
	return logging.NewFromConfig(&local)
}

func (c *commandContext) openStore() (*drafts.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := drafts.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open draft store: %w", err)
	}
	c.store = store
	return store, nil
}

func (c *commandContext) pipeline(ctx context.Context) (*orchestrator.Stack, error) {
	if c.stack != nil {
		return c.stack, nil
	}
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger()
	if err != nil {
		return nil, err
	}
	stack, err := orchestrator.NewStack(ctx, c.config, store, logger)
	if err != nil {
		return nil, err
	}
	c.stack = stack
	return stack, nil
}

func (c *commandContext) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	c.stack = nil
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
