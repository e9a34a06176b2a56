package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProviders()
	c.normalizeFetch()
	if err := c.normalizeExtraction(); err != nil {
		return err
	}
	c.Notify.NtfyTopic = strings.TrimSpace(c.Notify.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

// normalizeProviders trims every entry, fills kind defaults, and resolves
// credentials from the environment. When the file declares no providers, one
// entry per well-known API key variable is synthesized.
func (c *Config) normalizeProviders() {
	if len(c.Providers) == 0 {
		c.Providers = envProviders()
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		p.Name = strings.TrimSpace(p.Name)
		p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
		if p.Kind == "" {
			p.Kind = KindOpenRouter
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("%s-%d", p.Kind, i+1)
		}
		p.Model = strings.TrimSpace(p.Model)
		if p.Model == "" {
			p.Model = defaultModelForKind(p.Kind)
		}
		p.BaseURL = strings.TrimSpace(p.BaseURL)
		if p.BaseURL == "" && p.Kind == KindOpenRouter {
			p.BaseURL = defaultOpenRouterBaseURL
		}
		p.APIKey = strings.TrimSpace(p.APIKey)
		p.APIKeyEnv = strings.TrimSpace(p.APIKeyEnv)
		if p.APIKey == "" {
			env := p.APIKeyEnv
			if env == "" {
				env = defaultKeyEnvForKind(p.Kind)
			}
			if value, ok := os.LookupEnv(env); ok {
				p.APIKey = strings.TrimSpace(value)
			}
		}
		p.Referer = strings.TrimSpace(p.Referer)
		if p.Referer == "" {
			p.Referer = defaultProviderReferer
		}
		p.Title = strings.TrimSpace(p.Title)
		if p.Title == "" {
			p.Title = defaultProviderTitle
		}
	}
}

func envProviders() []Provider {
	var out []Provider
	for i, kind := range []string{KindOpenRouter, KindOpenAI, KindGemini} {
		value, ok := os.LookupEnv(defaultKeyEnvForKind(kind))
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		out = append(out, Provider{
			Name:     kind,
			Kind:     kind,
			Priority: (i + 1) * defaultProviderPriorityStride,
		})
	}
	return out
}

func (c *Config) normalizeFetch() {
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultFetchUserAgent
	}
}

func (c *Config) normalizeExtraction() error {
	c.Extraction.VocabularyPath = strings.TrimSpace(c.Extraction.VocabularyPath)
	if c.Extraction.VocabularyPath == "" {
		return nil
	}
	expanded, err := expandPath(c.Extraction.VocabularyPath)
	if err != nil {
		return fmt.Errorf("extraction.vocabulary_path: %w", err)
	}
	c.Extraction.VocabularyPath = expanded
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if value, ok := os.LookupEnv("JOBDRAFT_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
