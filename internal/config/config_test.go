package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7474, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "sqlite", cfg.Storage.StorageEngine)
	assert.Equal(t, "./data", cfg.Storage.DataPath)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Embedding.OllamaURL)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, 50000, cfg.Context.MaxTokens)
	assert.Equal(t, "development", cfg.Security.SecurityMode)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("NOTEWELL_PORT", "9000")
	t.Setenv("NOTEWELL_STORAGE_ENGINE", "postgres")
	t.Setenv("NOTEWELL_POSTGRES_DSN", "postgres://localhost/notewell")
	t.Setenv("NOTEWELL_EMBEDDING_PROVIDER", "openai")
	t.Setenv("NOTEWELL_OPENAI_API_KEY", "sk-test")
	t.Setenv("NOTEWELL_CONTEXT_MAX_TOKENS", "1234")
	t.Setenv("NOTEWELL_RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.StorageEngine)
	assert.Equal(t, "postgres://localhost/notewell", cfg.Storage.PostgresDSN)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.OpenAIAPIKey)
	assert.Equal(t, 1234, cfg.Context.MaxTokens)
	assert.Equal(t, 2.5, cfg.Server.RateLimitRPS)
}

func TestLoadConfigInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("NOTEWELL_PORT", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7474, cfg.Server.Port)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notewell.yaml")
	body := []byte(`
server:
  port: 8080
embedding:
  provider: openai
  openai_api_key: sk-from-file
  dimension: 1536
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-from-file", cfg.Embedding.OpenAIAPIKey)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	// Unset sections keep their defaults.
	assert.Equal(t, "sqlite", cfg.Storage.StorageEngine)
}

func TestLoadConfigEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notewell.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600))
	t.Setenv("NOTEWELL_PORT", "9090")

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfigFromFileMissing(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidatePostgresRequiresDSN(t *testing.T) {
	t.Setenv("NOTEWELL_STORAGE_ENGINE", "postgres")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidateUnknownEngine(t *testing.T) {
	t.Setenv("NOTEWELL_STORAGE_ENGINE", "mongodb")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidateProductionRequiresToken(t *testing.T) {
	t.Setenv("NOTEWELL_SECURITY_MODE", "production")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("NOTEWELL_API_TOKEN", "secret")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Security.APIToken)
}
