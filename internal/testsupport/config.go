package testsupport

import (
	"path/filepath"
	"testing"

	"jobdraft/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// No providers are configured unless an option adds them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Generation.AttemptTimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithChatProvider appends an OpenRouter-compatible provider pointing at baseURL.
func WithChatProvider(name, baseURL string, priority int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Providers = append(b.cfg.Providers, config.Provider{
			Name:     name,
			Kind:     config.KindOpenRouter,
			APIKey:   "test-key-" + name + "-0123456789",
			BaseURL:  baseURL,
			Model:    "test/model",
			Priority: priority,
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
