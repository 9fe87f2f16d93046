package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()

	validConfig := `
provider: gemini
gemini_key: test-key
model: gemini-2.5-flash
system_prompt: be concise
storage:
  backend: redis
  redis_addr: localhost:6379
  redis_ttl: 720h
stream:
  flush_interval_ms: 25
retention:
  max_age_days: 30
rate_limit: 10
`

	validFile := filepath.Join(tmpDir, "valid.yaml")
	if err := os.WriteFile(validFile, []byte(validConfig), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cfg, err := Load(validFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "gemini" {
		t.Errorf("provider = %s, want gemini", cfg.Provider)
	}
	if cfg.Model != "gemini-2.5-flash" {
		t.Errorf("model = %s, want gemini-2.5-flash", cfg.Model)
	}
	if cfg.Storage.Backend != "redis" {
		t.Errorf("backend = %s, want redis", cfg.Storage.Backend)
	}
	if cfg.Stream.FlushInterval() != 25*time.Millisecond {
		t.Errorf("flush interval = %v, want 25ms", cfg.Stream.FlushInterval())
	}
	if ttl, err := cfg.Storage.ParseRedisTTL(); err != nil || ttl != 720*time.Hour {
		t.Errorf("redis ttl = %v, %v, want 720h", ttl, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Provider != "openai" {
		t.Errorf("default provider = %s, want openai", cfg.Provider)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("default backend = %s, want file", cfg.Storage.Backend)
	}
	if cfg.Stream.FlushIntervalMS != 50 {
		t.Errorf("default flush interval = %d, want 50", cfg.Stream.FlushIntervalMS)
	}
	if cfg.Retention.Schedule != "@daily" {
		t.Errorf("default schedule = %s, want @daily", cfg.Retention.Schedule)
	}
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OpenAIKey != "env-key" {
		t.Errorf("openai key = %s, want env-key", cfg.OpenAIKey)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()

	invalidFile := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(invalidFile, []byte("provider: [[["), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	if _, err := Load(invalidFile); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults with key",
			mutate: func(c *Config) { c.OpenAIKey = "k" },
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "wat" },
			wantErr: "unknown provider",
		},
		{
			// only providers the chat command can actually register
			name:    "test-only provider rejected",
			mutate:  func(c *Config) { c.Provider = "scripted" },
			wantErr: "unknown provider",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.OpenAIKey = "k"; c.Storage.Backend = "s3" },
			wantErr: "unknown storage backend",
		},
		{
			name:    "missing openai key",
			mutate:  func(c *Config) {},
			wantErr: "openai_key is required",
		},
		{
			name:    "missing gemini key",
			mutate:  func(c *Config) { c.Provider = "gemini" },
			wantErr: "gemini_key is required",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.OpenAIKey = "k"; c.RateLimit = -1 },
			wantErr: "rate_limit",
		},
		{
			name:    "bad redis ttl",
			mutate:  func(c *Config) { c.OpenAIKey = "k"; c.Storage.RedisTTL = "fortnight" },
			wantErr: "invalid redis_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := Default()
	cfg.Model = "gpt-4o"
	cfg.Storage.Dir = "/tmp/chats"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Model != "gpt-4o" || loaded.Storage.Dir != "/tmp/chats" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
