package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Infer(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "<h1>Koffie</h1>"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIClientConfig{
		APIKey:      "sk-test",
		BaseURL:     server.URL,
		Model:       "gpt-4o",
		ContextSize: 128000,
		MaxRetries:  1,
	})

	resp, err := client.Infer(context.Background(), &InferenceRequest{
		SystemPrompt: "You write articles.",
		UserPrompt:   "Write about coffee",
		Temperature:  0.8,
		MaxTokens:    8000,
	})
	require.NoError(t, err)

	assert.Equal(t, "<h1>Koffie</h1>", resp.Text)
	assert.Equal(t, 15, resp.TokensUsed)
	assert.Equal(t, "gpt-4o", captured["model"])
	assert.EqualValues(t, 0.8, captured["temperature"])
	assert.EqualValues(t, 8000, captured["max_tokens"])
	messages, ok := captured["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, messages, 2)
	assert.Equal(t, 128000, client.GetContextWindow())
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIClientConfig{APIKey: "bad", BaseURL: server.URL, Model: "gpt-4o"})
	_, err := client.Infer(context.Background(), &InferenceRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}
