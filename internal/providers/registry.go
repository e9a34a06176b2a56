package providers

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"jobdraft/internal/config"
	"jobdraft/internal/services"
)

// ErrConfigurationInvalid reports that no usable provider is configured.
// It wraps services.ErrConfiguration.
var ErrConfigurationInvalid = fmt.Errorf("%w: no valid text-generation provider configured", services.ErrConfiguration)

const minCredentialLength = 16

// ProviderConfig is one configured text-generation endpoint. Values are
// immutable after the registry is built.
type ProviderConfig struct {
	Name       string
	Kind       string
	Credential string
	Model      string
	BaseURL    string
	Referer    string
	Title      string
	Priority   int
}

// Redacted returns the credential with everything but the last four
// characters masked.
func (p ProviderConfig) Redacted() string {
	runes := []rune(p.Credential)
	if len(runes) == 0 {
		return "<unset>"
	}
	if len(runes) <= 4 {
		return "****"
	}
	return "****" + string(runes[len(runes)-4:])
}

func (p ProviderConfig) String() string {
	return fmt.Sprintf("%s (%s, %s, priority %d)", p.Name, p.Kind, p.Model, p.Priority)
}

var officialHosts = map[string]string{
	config.KindOpenRouter: "openrouter.ai",
	config.KindOpenAI:     "api.openai.com",
	config.KindGemini:     "generativelanguage.googleapis.com",
}

var credentialPrefixes = map[string]string{
	config.KindOpenRouter: "sk-or-",
	config.KindOpenAI:     "sk-",
	config.KindGemini:     "AIza",
}

// UsesOfficialEndpoint reports whether the provider talks to the vendor's
// public API rather than a proxy or self-hosted gateway.
func (p ProviderConfig) UsesOfficialEndpoint() bool {
	if strings.TrimSpace(p.BaseURL) == "" {
		return true
	}
	parsed, err := url.Parse(p.BaseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Hostname(), officialHosts[p.Kind])
}

// FromConfig converts the loaded configuration into provider entries.
func FromConfig(cfg *config.Config) []ProviderConfig {
	if cfg == nil {
		return nil
	}
	out := make([]ProviderConfig, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		out = append(out, ProviderConfig{
			Name:       p.Name,
			Kind:       p.Kind,
			Credential: p.APIKey,
			Model:      p.Model,
			BaseURL:    p.BaseURL,
			Referer:    p.Referer,
			Title:      p.Title,
			Priority:   p.Priority,
		})
	}
	return out
}

// Diagnostic describes one configured provider and whether it is usable.
type Diagnostic struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Model      string `json:"model"`
	Priority   int    `json:"priority"`
	Credential string `json:"credential"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
}

// Registry holds the validated provider list.
type Registry struct {
	active      []ProviderConfig
	diagnostics []Diagnostic
}

// NewRegistry validates configs and orders the usable ones by ascending
// priority. Entries with equal priority keep their configured order.
func NewRegistry(configs []ProviderConfig) *Registry {
	ordered := make([]ProviderConfig, len(configs))
	copy(ordered, configs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	r := &Registry{}
	for _, p := range ordered {
		reason := validateCredential(p)
		r.diagnostics = append(r.diagnostics, Diagnostic{
			Name:       p.Name,
			Kind:       p.Kind,
			Model:      p.Model,
			Priority:   p.Priority,
			Credential: p.Redacted(),
			Valid:      reason == "",
			Reason:     reason,
		})
		if reason == "" {
			r.active = append(r.active, p)
		}
	}
	return r
}

// NewRegistryFromConfig builds a registry from the loaded configuration.
func NewRegistryFromConfig(cfg *config.Config) *Registry {
	return NewRegistry(FromConfig(cfg))
}

// Active returns the usable providers in attempt order.
func (r *Registry) Active() []ProviderConfig {
	if r == nil {
		return nil
	}
	out := make([]ProviderConfig, len(r.active))
	copy(out, r.active)
	return out
}

// Diagnostics returns every configured provider, valid or not, in attempt order.
func (r *Registry) Diagnostics() []Diagnostic {
	if r == nil {
		return nil
	}
	out := make([]Diagnostic, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}

// Validate returns ErrConfigurationInvalid when no provider is usable.
func (r *Registry) Validate() error {
	if r == nil || len(r.active) == 0 {
		if r != nil && len(r.diagnostics) > 0 {
			return fmt.Errorf("%w: %d configured, all invalid (first: %s: %s)",
				ErrConfigurationInvalid, len(r.diagnostics), r.diagnostics[0].Name, r.diagnostics[0].Reason)
		}
		return ErrConfigurationInvalid
	}
	return nil
}

func validateCredential(p ProviderConfig) string {
	cred := p.Credential
	if strings.TrimSpace(cred) == "" {
		return "missing credential"
	}
	for _, r := range cred {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "credential contains whitespace or control characters"
		}
	}
	if len([]rune(cred)) < minCredentialLength {
		return fmt.Sprintf("credential shorter than %d characters", minCredentialLength)
	}
	if prefix, ok := credentialPrefixes[p.Kind]; ok && p.UsesOfficialEndpoint() && !strings.HasPrefix(cred, prefix) {
		return fmt.Sprintf("credential does not start with %q expected by the %s endpoint", prefix, p.Kind)
	}
	return ""
}
