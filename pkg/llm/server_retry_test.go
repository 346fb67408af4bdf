package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastBackoff(int) time.Duration { return 5 * time.Millisecond }

func TestServerClient_RetryOnTimeout(t *testing.T) {
	var attempts atomic.Int32

	// Fails first 2 times, succeeds on 3rd
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt := attempts.Add(1)
		if attempt < 3 {
			time.Sleep(200 * time.Millisecond)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices":[{"message":{"content":"success"}}],"usage":{"total_tokens":10}}`))
	}))
	defer server.Close()

	client := NewServerClient(ServerClientConfig{
		BaseURL:    server.URL,
		ModelName:  "test-model",
		Timeout:    100 * time.Millisecond,
		MaxRetries: 3,
		Backoff:    fastBackoff,
	})

	resp, err := client.Infer(context.Background(), &InferenceRequest{UserPrompt: "test", MaxTokens: 100})
	if err != nil {
		t.Fatalf("Expected success after retries, got error: %v", err)
	}

	if resp.Text != "success" {
		t.Errorf("Expected 'success', got: %s", resp.Text)
	}

	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts.Load())
	}
}

func TestServerClient_RetryOn5xxError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt := attempts.Add(1)
		if attempt < 3 {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream error"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices":[{"message":{"content":"success"}}],"usage":{"total_tokens":10}}`))
	}))
	defer server.Close()

	client := NewServerClient(ServerClientConfig{
		BaseURL:    server.URL,
		MaxRetries: 3,
		Backoff:    fastBackoff,
	})

	resp, err := client.Infer(context.Background(), &InferenceRequest{UserPrompt: "test"})
	if err != nil {
		t.Fatalf("Expected success after retries, got error: %v", err)
	}
	if resp.Text != "success" {
		t.Errorf("Expected 'success', got: %s", resp.Text)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts.Load())
	}
}

func TestServerClient_NoRetryOn4xxError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer server.Close()

	client := NewServerClient(ServerClientConfig{
		BaseURL:    server.URL,
		MaxRetries: 3,
		Backoff:    fastBackoff,
	})

	_, err := client.Infer(context.Background(), &InferenceRequest{UserPrompt: "test"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt (no retries for 4xx), got: %d", attempts.Load())
	}
}

func TestServerClient_ExhaustedRetries(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewServerClient(ServerClientConfig{
		BaseURL:    server.URL,
		Timeout:    50 * time.Millisecond,
		MaxRetries: 2,
		Backoff:    fastBackoff,
	})

	_, err := client.Infer(context.Background(), &InferenceRequest{UserPrompt: "test"})
	if err == nil {
		t.Fatal("Expected error after exhausting retries, got nil")
	}

	// initial + 2 retries
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts (initial + 2 retries), got: %d", attempts.Load())
	}
}

func TestServerClient_CancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewServerClient(ServerClientConfig{
		BaseURL:    server.URL,
		MaxRetries: 3,
		Backoff:    func(int) time.Duration { return time.Hour },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Infer(ctx, &InferenceRequest{UserPrompt: "test"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Backoff ignored context cancellation")
	}
}

func TestServerClient_RetryOnRateLimit(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"after limit"}}]}`))
	}))
	defer server.Close()

	client := NewServerClient(ServerClientConfig{
		BaseURL:    server.URL,
		MaxRetries: 2,
		Backoff:    fastBackoff,
	})

	resp, err := client.Infer(context.Background(), &InferenceRequest{UserPrompt: "test"})
	if err != nil {
		t.Fatalf("Expected success after rate limit, got error: %v", err)
	}
	if resp.Text != "after limit" {
		t.Errorf("Expected 'after limit', got: %s", resp.Text)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got: %d", attempts.Load())
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"":     0,
		"abc":  0,
		"-3":   0,
		"2":    2 * time.Second,
		" 5 ":  5 * time.Second,
		"3600": time.Minute,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}
