package preflight

import (
	"context"

	"jobdraft/internal/config"
	"jobdraft/internal/llm"
	"jobdraft/internal/providers"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Completer sends one request to one provider. *providers.Clients implements it.
type Completer interface {
	Complete(ctx context.Context, p providers.ProviderConfig, req llm.Request) (*llm.Result, error)
}

// Options selects the optional checks.
type Options struct {
	// Live pings every active provider through Client.
	Live   bool
	Client Completer
}

// RunAll executes the checks for cfg in display order.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Extraction.VocabularyPath != "" {
		results = append(results, CheckVocabulary(cfg.Extraction.VocabularyPath))
	}

	registry := providers.NewRegistryFromConfig(cfg)
	diags := registry.Diagnostics()
	if len(diags) == 0 {
		results = append(results, Result{Name: "Providers", Detail: "none configured (set OPENROUTER_API_KEY or add [[providers]])"})
	}
	for _, diag := range diags {
		results = append(results, CheckCredential(diag))
	}

	if opts.Live && opts.Client != nil {
		for _, p := range registry.Active() {
			results = append(results, CheckProvider(ctx, opts.Client, p))
		}
	}
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
