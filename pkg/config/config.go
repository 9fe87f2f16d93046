// Package config loads and validates application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// API Keys
	OpenAIKey string `yaml:"openai_key"`
	GeminiKey string `yaml:"gemini_key"`

	// OpenAIBaseURL overrides the OpenAI endpoint, for compatible
	// providers.
	OpenAIBaseURL string `yaml:"openai_base_url"`

	// Model Configuration
	Provider     string `yaml:"provider"` // openai, gemini
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`

	// Storage Configuration
	Storage StorageConfig `yaml:"storage"`

	// Stream Configuration
	Stream StreamConfig `yaml:"stream"`

	// Retention Configuration
	Retention RetentionConfig `yaml:"retention"`

	// RateLimit caps generation requests per minute. Zero disables
	// the limit.
	RateLimit float64 `yaml:"rate_limit"`

	// MetricsAddr, when set, serves Prometheus metrics on this
	// address (e.g. ":9090").
	MetricsAddr string `yaml:"metrics_addr"`
}

// StorageConfig selects and configures the session backend.
type StorageConfig struct {
	// Backend is "file" or "redis".
	Backend string `yaml:"backend"`

	// Dir is the chat directory for the file backend. Empty uses
	// the default under the home directory.
	Dir string `yaml:"dir"`

	// Redis settings, used when Backend is "redis".
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
	RedisTTL      string `yaml:"redis_ttl"`
}

// ParseRedisTTL parses the configured redis TTL. Empty means no
// expiry.
func (s StorageConfig) ParseRedisTTL() (time.Duration, error) {
	if s.RedisTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.RedisTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid redis_ttl: %w", err)
	}
	return d, nil
}

// StreamConfig tunes live output rendering.
type StreamConfig struct {
	// FlushIntervalMS is the display batching interval in
	// milliseconds.
	FlushIntervalMS int `yaml:"flush_interval_ms"`
}

// FlushInterval returns the batching interval as a duration.
func (s StreamConfig) FlushInterval() time.Duration {
	return time.Duration(s.FlushIntervalMS) * time.Millisecond
}

// RetentionConfig controls automatic removal of old sessions.
type RetentionConfig struct {
	// MaxAgeDays removes sessions older than this many days. Zero
	// disables retention sweeps.
	MaxAgeDays int `yaml:"max_age_days"`

	// Schedule is a cron expression for sweep timing.
	Schedule string `yaml:"schedule"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Provider: "openai",
		Model:    "gpt-4.1",
		Storage: StorageConfig{
			Backend: "file",
		},
		Stream: StreamConfig{
			FlushIntervalMS: 50,
		},
		Retention: RetentionConfig{
			Schedule: "@daily",
		},
	}
}

// Load loads configuration from a YAML file, filling defaults and
// environment fallbacks. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	// Load API keys from environment if not in config
	if cfg.OpenAIKey == "" {
		cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.GeminiKey == "" {
		cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4.1"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Stream.FlushIntervalMS <= 0 {
		cfg.Stream.FlushIntervalMS = 50
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = "@daily"
	}
}

// Save writes the configuration to a YAML file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown provider: %s", c.Provider)
	}

	switch c.Storage.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	if c.Provider == "openai" && c.OpenAIKey == "" {
		return fmt.Errorf("openai_key is required for the openai provider")
	}
	if c.Provider == "gemini" && c.GeminiKey == "" {
		return fmt.Errorf("gemini_key is required for the gemini provider")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if c.Retention.MaxAgeDays < 0 {
		return fmt.Errorf("max_age_days must not be negative")
	}
	if _, err := c.Storage.ParseRedisTTL(); err != nil {
		return err
	}

	return nil
}
