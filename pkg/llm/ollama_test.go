package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypete/autopilot/pkg/config"
)

func TestOllamaClient_Infer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "qwen2.5:14b", body.Model)

		w.Write([]byte(`{"choices":[{"message":{"content":"Verse bonen maken het verschil."}}],"usage":{"total_tokens":42}}`))
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, ModelName: "qwen2.5:14b"})
	resp, err := client.Infer(context.Background(), &InferenceRequest{UserPrompt: "Schrijf een zin over koffie"})
	require.NoError(t, err)
	assert.Equal(t, "Verse bonen maken het verschil.", resp.Text)
	assert.Equal(t, 42, resp.TokensUsed)
}

func TestOllamaClient_ContextWindow(t *testing.T) {
	tests := []struct {
		name   string
		cfg    OllamaConfig
		window int
	}{
		{"known model", OllamaConfig{ModelName: "llama3.1:8b"}, 131072},
		{"unknown model", OllamaConfig{ModelName: "my-finetune"}, 8192},
		{"explicit size wins", OllamaConfig{ModelName: "llama3.1:8b", ContextSize: 4096}, 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.window, NewOllamaClient(tt.cfg).GetContextWindow())
		})
	}
}

func TestOllamaClient_DefaultURL(t *testing.T) {
	client := NewOllamaClient(OllamaConfig{ModelName: "mistral:7b"})
	assert.Equal(t, defaultOllamaURL+"/v1/chat/completions", client.endpoint)
}

func TestNewBackend_Providers(t *testing.T) {
	tests := []struct {
		provider string
		check    func(t *testing.T, b Backend)
	}{
		{"openai", func(t *testing.T, b Backend) { assert.IsType(t, &OpenAIClient{}, b) }},
		{"server", func(t *testing.T, b Backend) { assert.IsType(t, &ServerClient{}, b) }},
		{"ollama", func(t *testing.T, b Backend) {
			assert.IsType(t, &OllamaClient{}, b)
			assert.Equal(t, 131072, b.GetContextWindow())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := &config.Config{LLM: config.LLMConfig{Provider: tt.provider, BaseURL: "http://localhost:8081", Model: "llama3.1:8b"}}
			b, err := NewBackend(cfg)
			require.NoError(t, err)
			tt.check(t, b)
		})
	}

	_, err := NewBackend(&config.Config{LLM: config.LLMConfig{Provider: "bogus"}})
	assert.Error(t, err)
}
