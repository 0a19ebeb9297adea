// Package config provides configuration management for Illude.
// Settings are loaded from environment variables with the ILLUDE_ prefix,
// optionally overlaid by a YAML configuration file, and validated before use.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Illude application.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	LLM     LLMConfig     `yaml:"llm"`
	Auth    AuthConfig    `yaml:"auth"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port" validate:"min=1,max=65535"` // Server port (default: 8080)
	Host string `yaml:"host" validate:"required"`        // Server host (default: 127.0.0.1)

	// RateLimit is the per-client request rate for chapter generation,
	// in requests per minute. Zero disables rate limiting.
	RateLimit int `yaml:"rate_limit" validate:"min=0"`
}

// StorageConfig contains database configuration.
type StorageConfig struct {
	Engine      string `yaml:"engine" validate:"oneof=sqlite postgres"` // sqlite or postgres (default: sqlite)
	DataPath    string `yaml:"data_path"`                               // SQLite data directory (default: ./data)
	PostgresDSN string `yaml:"postgres_dsn"`                            // PostgreSQL connection string
}

// LLMConfig contains generation backend configuration.
type LLMConfig struct {
	Provider     string        `yaml:"provider" validate:"oneof=gemini openai ollama"` // default: gemini
	Model        string        `yaml:"model"`                                          // provider-specific default when empty
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	OpenAIAPIKey string        `yaml:"openai_api_key"`
	OpenAIURL    string        `yaml:"openai_url"`
	OllamaURL    string        `yaml:"ollama_url"`
	Temperature  float64       `yaml:"temperature" validate:"min=0,max=2"`
	Timeout      time.Duration `yaml:"timeout"`
}

// AuthConfig contains session authentication settings.
type AuthConfig struct {
	// Mode selects the session provider: "header" trusts identity headers
	// from a fronting auth proxy; "static" serves a single fixed identity
	// for local development.
	Mode string `yaml:"mode" validate:"oneof=header static"`

	// StaticUserID and friends define the fixed identity in static mode.
	StaticUserID    string `yaml:"static_user_id"`
	StaticUserEmail string `yaml:"static_user_email"`
	StaticUserName  string `yaml:"static_user_name"`
}

// LoadConfig loads configuration from environment variables with defaults.
// When ILLUDE_CONFIG_FILE is set (or a path is passed explicitly), the YAML
// file is applied on top of the environment values.
func LoadConfig() (*Config, error) {
	return LoadConfigFromFile(os.Getenv("ILLUDE_CONFIG_FILE"))
}

// LoadConfigFromFile loads configuration from the environment, then overlays
// the YAML file at path when path is non-empty.
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := buildBaseConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Storage.Engine == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("config: postgres storage engine requires ILLUDE_POSTGRES_DSN")
	}
	if c.LLM.Provider == "gemini" && c.LLM.GeminiAPIKey == "" {
		return fmt.Errorf("config: gemini provider requires ILLUDE_GEMINI_API_KEY")
	}
	if c.LLM.Provider == "openai" && c.LLM.OpenAIAPIKey == "" {
		return fmt.Errorf("config: openai provider requires ILLUDE_OPENAI_API_KEY")
	}
	return nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      getEnvInt("ILLUDE_PORT", 8080),
			Host:      getEnv("ILLUDE_HOST", "127.0.0.1"),
			RateLimit: getEnvInt("ILLUDE_RATE_LIMIT", 10),
		},
		Storage: StorageConfig{
			Engine:      getEnv("ILLUDE_STORAGE_ENGINE", "sqlite"),
			DataPath:    getEnv("ILLUDE_DATA_PATH", "./data"),
			PostgresDSN: getEnv("ILLUDE_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			Provider:     getEnv("ILLUDE_LLM_PROVIDER", "gemini"),
			Model:        getEnv("ILLUDE_LLM_MODEL", ""),
			GeminiAPIKey: getEnv("ILLUDE_GEMINI_API_KEY", ""),
			OpenAIAPIKey: getEnv("ILLUDE_OPENAI_API_KEY", ""),
			OpenAIURL:    getEnv("ILLUDE_OPENAI_URL", ""),
			OllamaURL:    getEnv("ILLUDE_OLLAMA_URL", "http://localhost:11434"),
			Temperature:  getEnvFloat("ILLUDE_LLM_TEMPERATURE", 0.8),
			Timeout:      getEnvDuration("ILLUDE_LLM_TIMEOUT", 120*time.Second),
		},
		Auth: AuthConfig{
			Mode:            getEnv("ILLUDE_AUTH_MODE", "static"),
			StaticUserID:    getEnv("ILLUDE_STATIC_USER_ID", "local-user"),
			StaticUserEmail: getEnv("ILLUDE_STATIC_USER_EMAIL", "local@localhost"),
			StaticUserName:  getEnv("ILLUDE_STATIC_USER_NAME", "Local User"),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
