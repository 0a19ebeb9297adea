package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ILLUDE_LLM_PROVIDER", "ollama")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.RateLimit != 10 {
		t.Errorf("RateLimit = %d, want 10", cfg.Server.RateLimit)
	}
	if cfg.Storage.Engine != "sqlite" {
		t.Errorf("Engine = %q, want sqlite", cfg.Storage.Engine)
	}
	if cfg.LLM.Temperature != 0.8 {
		t.Errorf("Temperature = %v, want 0.8", cfg.LLM.Temperature)
	}
	if cfg.LLM.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v, want 120s", cfg.LLM.Timeout)
	}
	if cfg.Auth.Mode != "static" {
		t.Errorf("Auth.Mode = %q, want static", cfg.Auth.Mode)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ILLUDE_PORT", "9090")
	t.Setenv("ILLUDE_STORAGE_ENGINE", "postgres")
	t.Setenv("ILLUDE_POSTGRES_DSN", "postgres://localhost/illude")
	t.Setenv("ILLUDE_LLM_PROVIDER", "openai")
	t.Setenv("ILLUDE_OPENAI_API_KEY", "sk-test")
	t.Setenv("ILLUDE_LLM_TIMEOUT", "30s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Engine != "postgres" {
		t.Errorf("Engine = %q, want postgres", cfg.Storage.Engine)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.LLM.Timeout)
	}
}

func TestLoadConfigFromFileOverlay(t *testing.T) {
	t.Setenv("ILLUDE_LLM_PROVIDER", "ollama")
	t.Setenv("ILLUDE_PORT", "9090")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  port: 7070\n  host: 0.0.0.0\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile() error: %v", err)
	}

	// File values win over environment values.
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
}

func TestValidateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad engine", func(c *Config) { c.Storage.Engine = "mysql" }},
		{"bad provider", func(c *Config) { c.LLM.Provider = "claude" }},
		{"postgres without dsn", func(c *Config) {
			c.Storage.Engine = "postgres"
			c.Storage.PostgresDSN = ""
		}},
		{"gemini without key", func(c *Config) {
			c.LLM.Provider = "gemini"
			c.LLM.GeminiAPIKey = ""
		}},
		{"openai without key", func(c *Config) {
			c.LLM.Provider = "openai"
			c.LLM.OpenAIAPIKey = ""
		}},
		{"bad auth mode", func(c *Config) { c.Auth.Mode = "oauth" }},
		{"temperature out of range", func(c *Config) { c.LLM.Temperature = 3.0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ILLUDE_LLM_PROVIDER", "ollama")
			cfg := buildBaseConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
