package llm

import (
	"fmt"
	"time"
)

// Config selects and configures an embedding provider.
type Config struct {
	// Provider is "ollama" or "openai".
	Provider string

	// Model is the embedding model name; empty uses the provider default.
	Model string

	// Timeout bounds each embedding request; zero uses the provider default.
	Timeout time.Duration

	// OllamaURL is the Ollama daemon base URL.
	OllamaURL string

	// OpenAIAPIKey authenticates against the OpenAI API.
	OpenAIAPIKey string

	// OpenAIBaseURL overrides the OpenAI endpoint (for compatible gateways).
	OpenAIBaseURL string
}

// NewEmbeddingClient builds an EmbeddingClient for the configured provider.
func NewEmbeddingClient(cfg Config) (EmbeddingClient, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
