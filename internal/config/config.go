package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Provider describes one text-generation endpoint plus credential.
type Provider struct {
	Name      string `toml:"name"`
	Kind      string `toml:"kind"`
	APIKey    string `toml:"api_key"`
	APIKeyEnv string `toml:"api_key_env"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	Priority  int    `toml:"priority"`
	Referer   string `toml:"referer"`
	Title     string `toml:"title"`
}

// Generation contains the knobs shared by every provider call.
type Generation struct {
	Temperature            float64 `toml:"temperature"`
	MaxTokens              int     `toml:"max_tokens"`
	Stream                 bool    `toml:"stream"`
	AttemptTimeoutSeconds  int     `toml:"attempt_timeout_seconds"`
	MinGeneratedChars      int     `toml:"min_generated_chars"`
	DefaultCooldownSeconds int     `toml:"default_cooldown_seconds"`
}

// Classifier contains input classification settings.
type Classifier struct {
	// MinConfidence is the confidence below which the user is asked to clarify.
	MinConfidence float64 `toml:"min_confidence"`
}

// Fetch contains settings for the reference page fetcher.
type Fetch struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxBodyChars   int    `toml:"max_body_chars"`
	UserAgent      string `toml:"user_agent"`
}

// Extraction contains document extraction settings.
type Extraction struct {
	// VocabularyPath optionally replaces the built-in tag and scoring vocabulary.
	VocabularyPath string `toml:"vocabulary_path"`
}

// Notifications contains ntfy settings. An empty topic disables delivery.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for jobdraft.
//
// Configuration sections by subsystem:
//   - Paths: data directory (database, lock, logs) and API bind address
//   - Providers: ordered text-generation endpoints and credentials
//   - Generation: sampling options, attempt timeout, cooldown window
//   - Classifier: clarification threshold
//   - Fetch: reference page retrieval limits
//   - Extraction: vocabulary override
//   - Notifications: ntfy topic for finished drafts
//   - Logging: log format and level
type Config struct {
	Paths      Paths         `toml:"paths"`
	Providers  []Provider    `toml:"providers"`
	Generation Generation    `toml:"generation"`
	Classifier Classifier    `toml:"classifier"`
	Fetch      Fetch         `toml:"fetch"`
	Extraction Extraction    `toml:"extraction"`
	Notify     Notifications `toml:"notifications"`
	Logging    Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/jobdraft/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("jobdraft.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "jobdraft.db")
}

// LockPath returns the single-instance lock file used by the API server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "jobdraft.lock")
}

// LogPath returns the daemon and CLI log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "jobdraft.log")
}

// AttemptTimeout returns the per-provider attempt timeout.
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Generation.AttemptTimeoutSeconds) * time.Second
}

// DefaultCooldown returns the cooldown applied when every provider is rate
// limited and none reported a reset time.
func (c *Config) DefaultCooldown() time.Duration {
	return time.Duration(c.Generation.DefaultCooldownSeconds) * time.Second
}

// NotifyTimeout returns the ntfy request timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notify.RequestTimeoutSeconds) * time.Second
}

// FetchTimeout returns the reference page fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
