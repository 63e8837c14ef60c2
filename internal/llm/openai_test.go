package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	assert.Error(t, err)
}

func TestOpenAIEmbedBatchOrdersByIndex(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		// Data deliberately out of input order.
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.3,0.4]},
			{"index":0,"embedding":[0.1,0.2]}
		]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "sk-test"})
	require.NoError(t, err)

	embeddings, err := client.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, embeddings)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestOpenAIEmbedBatchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "sk-test"})
	require.NoError(t, err)

	_, err = client.EmbedBatch(context.Background(), []string{"alpha"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIEmbedBatchCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "sk-test"})
	require.NoError(t, err)

	_, err = client.EmbedBatch(context.Background(), []string{"alpha"})
	assert.Error(t, err)
}

func TestOpenAIDefaults(t *testing.T) {
	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", client.Model())
}

func TestFactorySelectsProvider(t *testing.T) {
	ollama, err := NewEmbeddingClient(Config{Provider: "ollama"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, ollama)

	// Empty provider defaults to Ollama.
	def, err := NewEmbeddingClient(Config{})
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, def)

	openai, err := NewEmbeddingClient(Config{Provider: "openai", OpenAIAPIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, openai)

	_, err = NewEmbeddingClient(Config{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewEmbeddingClient(Config{Provider: "cohere"})
	assert.Error(t, err)
}
