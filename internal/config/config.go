// Package config provides configuration management for Notewell.
// It loads settings from environment variables with the NOTEWELL_ prefix
// and provides sensible defaults for all configuration options.
//
// An optional YAML file (NOTEWELL_CONFIG_FILE or an explicit path) supplies
// base values; environment variables always take precedence over the file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Notewell application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Context   ContextConfig   `yaml:"context"`
	Security  SecurityConfig  `yaml:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int     `yaml:"port"`             // Server port (default: 7474)
	Host           string  `yaml:"host"`             // Server host (default: 127.0.0.1)
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`   // Requests per second per server (default: 20)
	RateLimitBurst int     `yaml:"rate_limit_burst"` // Burst size for the rate limiter (default: 40)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string `yaml:"storage_engine"` // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string `yaml:"data_path"`      // Path to data directory for SQLite (default: ./data)
	PostgresDSN   string `yaml:"postgres_dsn"`   // Postgres connection string (required for postgres engine)
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`        // Embedding provider: ollama, openai (default: ollama)
	Model          string `yaml:"model"`           // Model name (default: provider-specific)
	OllamaURL      string `yaml:"ollama_url"`      // Ollama API URL (default: http://localhost:11434)
	OpenAIAPIKey   string `yaml:"openai_api_key"`  // OpenAI API key
	OpenAIBaseURL  string `yaml:"openai_base_url"` // OpenAI-compatible API base URL
	TimeoutSeconds int    `yaml:"timeout_seconds"` // Per-request timeout (default: 30)
	Dimension      int    `yaml:"dimension"`       // Vector dimension, Postgres column width (default: 768)
}

// ContextConfig contains context-assembly defaults.
type ContextConfig struct {
	MaxTokens      int `yaml:"max_tokens"`       // Default token budget per request (default: 50000)
	StaleBatchSize int `yaml:"stale_batch_size"` // Notes re-embedded per refresh pass (default: 10)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string `yaml:"security_mode"` // Security mode: development, production (default: development)
	APIToken     string `yaml:"api_token"`     // API authentication token
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the NOTEWELL_ prefix. When
// NOTEWELL_CONFIG_FILE is set, that YAML file supplies base values first.
func LoadConfig() (*Config, error) {
	return LoadConfigFromFile(os.Getenv("NOTEWELL_CONFIG_FILE"))
}

// LoadConfigFromFile loads configuration from an optional YAML file, then
// applies environment variable overrides on top. An empty path skips the
// file step entirely.
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config populated with defaults only.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           7474,
			Host:           "127.0.0.1",
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Storage: StorageConfig{
			StorageEngine: "sqlite",
			DataPath:      "./data",
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaURL:      "http://localhost:11434",
			TimeoutSeconds: 30,
			Dimension:      768,
		},
		Context: ContextConfig{
			MaxTokens:      50000,
			StaleBatchSize: 10,
		},
		Security: SecurityConfig{
			SecurityMode: "development",
		},
	}
}

// applyEnv overrides config fields from NOTEWELL_ environment variables.
// Each current value acts as the fallback, so the file layer survives for
// variables that are unset.
func (c *Config) applyEnv() {
	c.Server.Port = getEnvInt("NOTEWELL_PORT", c.Server.Port)
	c.Server.Host = getEnv("NOTEWELL_HOST", c.Server.Host)
	c.Server.RateLimitRPS = getEnvFloat("NOTEWELL_RATE_LIMIT_RPS", c.Server.RateLimitRPS)
	c.Server.RateLimitBurst = getEnvInt("NOTEWELL_RATE_LIMIT_BURST", c.Server.RateLimitBurst)

	c.Storage.StorageEngine = getEnv("NOTEWELL_STORAGE_ENGINE", c.Storage.StorageEngine)
	c.Storage.DataPath = getEnv("NOTEWELL_DATA_PATH", c.Storage.DataPath)
	c.Storage.PostgresDSN = getEnv("NOTEWELL_POSTGRES_DSN", c.Storage.PostgresDSN)

	c.Embedding.Provider = getEnv("NOTEWELL_EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.Model = getEnv("NOTEWELL_EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.OllamaURL = getEnv("NOTEWELL_OLLAMA_URL", c.Embedding.OllamaURL)
	c.Embedding.OpenAIAPIKey = getEnv("NOTEWELL_OPENAI_API_KEY", c.Embedding.OpenAIAPIKey)
	c.Embedding.OpenAIBaseURL = getEnv("NOTEWELL_OPENAI_BASE_URL", c.Embedding.OpenAIBaseURL)
	c.Embedding.TimeoutSeconds = getEnvInt("NOTEWELL_EMBEDDING_TIMEOUT_SECONDS", c.Embedding.TimeoutSeconds)
	c.Embedding.Dimension = getEnvInt("NOTEWELL_EMBEDDING_DIMENSION", c.Embedding.Dimension)

	c.Context.MaxTokens = getEnvInt("NOTEWELL_CONTEXT_MAX_TOKENS", c.Context.MaxTokens)
	c.Context.StaleBatchSize = getEnvInt("NOTEWELL_STALE_BATCH_SIZE", c.Context.StaleBatchSize)

	c.Security.SecurityMode = getEnv("NOTEWELL_SECURITY_MODE", c.Security.SecurityMode)
	c.Security.APIToken = getEnv("NOTEWELL_API_TOKEN", c.Security.APIToken)
}

// validate rejects configurations that cannot produce a working server.
func (c *Config) validate() error {
	switch c.Storage.StorageEngine {
	case "sqlite":
		// DataPath has a default; nothing more to check.
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: NOTEWELL_POSTGRES_DSN is required for the postgres storage engine")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q (want sqlite or postgres)", c.Storage.StorageEngine)
	}

	if c.Security.SecurityMode == "production" && c.Security.APIToken == "" {
		return fmt.Errorf("config: NOTEWELL_API_TOKEN is required in production security mode")
	}

	if c.Context.MaxTokens <= 0 {
		return fmt.Errorf("config: context max tokens must be positive, got %d", c.Context.MaxTokens)
	}

	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as a float,
// it returns the default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
