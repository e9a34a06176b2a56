package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is structurally usable. Credential
// quality is judged by the provider registry, which keeps invalid entries for
// diagnostics instead of rejecting the whole file.
func (c *Config) Validate() error {
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateProviders() error {
	seen := make(map[string]struct{}, len(c.Providers))
	for i, p := range c.Providers {
		switch p.Kind {
		case KindOpenRouter, KindOpenAI, KindGemini:
		default:
			return fmt.Errorf("providers[%d].kind: unsupported value %q (expected openrouter, openai, or gemini)", i, p.Kind)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("providers[%d].name: duplicate provider name %q", i, p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Priority < 0 {
			return fmt.Errorf("providers[%d].priority must be zero or positive", i)
		}
		if p.BaseURL != "" {
			parsed, err := url.Parse(p.BaseURL)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return fmt.Errorf("providers[%d].base_url: %q is not an absolute URL", i, p.BaseURL)
			}
		}
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return errors.New("generation.temperature must be between 0 and 2")
	}
	if c.Generation.MaxTokens <= 0 {
		return errors.New("generation.max_tokens must be positive")
	}
	if c.Generation.AttemptTimeoutSeconds <= 0 {
		return errors.New("generation.attempt_timeout_seconds must be positive")
	}
	if c.Generation.MinGeneratedChars <= 0 {
		return errors.New("generation.min_generated_chars must be positive")
	}
	if c.Generation.DefaultCooldownSeconds <= 0 {
		return errors.New("generation.default_cooldown_seconds must be positive")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		return errors.New("classifier.min_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.New("fetch.timeout_seconds must be positive")
	}
	if c.Fetch.MaxBodyChars <= 0 {
		return errors.New("fetch.max_body_chars must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notify.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notify.NtfyTopic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic: %q is not an absolute URL", c.Notify.NtfyTopic)
	}
	if c.Notify.RequestTimeoutSeconds <= 0 {
		return errors.New("notifications.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
