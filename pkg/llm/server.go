package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ServerClient talks to any OpenAI-compatible chat completions endpoint:
// llama-server, vLLM, LM Studio, Ollama's /v1 surface or OpenAI itself.
type ServerClient struct {
	endpoint    string
	apiKey      string
	model       string
	contextSize int
	client      *http.Client
	maxRetries  int
	backoff     func(attempt int) time.Duration
}

// ServerClientConfig configures a ServerClient. Zero values get defaults:
// APIPath "/v1/chat/completions", Timeout 3m, MaxRetries 3, ExponentialBackoff.
type ServerClientConfig struct {
	BaseURL     string
	APIKey      string
	ModelName   string
	ContextSize int
	APIPath     string
	Timeout     time.Duration
	MaxRetries  int
	Backoff     func(attempt int) time.Duration
}

// NewServerClient builds a client from cfg.
func NewServerClient(cfg ServerClientConfig) *ServerClient {
	path := cfg.APIPath
	if path == "" {
		path = "/v1/chat/completions"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Minute
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 3
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff
	}

	return &ServerClient{
		endpoint:    strings.TrimRight(cfg.BaseURL, "/") + path,
		apiKey:      cfg.APIKey,
		model:       cfg.ModelName,
		contextSize: cfg.ContextSize,
		client:      &http.Client{Timeout: timeout},
		maxRetries:  retries,
		backoff:     backoff,
	}
}

// ExponentialBackoff waits 1s, 2s, 4s, ...
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []chatMessage     `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Stream      bool              `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// statusError is a non-200 reply from the endpoint.
type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.code, e.body)
}

// retryable reports whether another attempt may succeed. Rate limits and
// server-side failures qualify; other client errors do not.
func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// Infer sends one chat completion, retrying transient failures with backoff.
func (c *ServerClient) Infer(ctx context.Context, req *InferenceRequest) (*InferenceResponse, error) {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserPrompt})

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		out, err := c.send(ctx, payload)
		if err == nil {
			return out, nil
		}
		lastErr = err

		delay, ok := c.retryDelay(ctx, err, attempt)
		if !ok {
			break
		}
		if err := sleepCtx(ctx, delay); err != nil {
			break
		}
	}
	return nil, fmt.Errorf("request failed: %w", lastErr)
}

// send performs a single attempt.
func (c *ServerClient) send(ctx context.Context, payload []byte) (*InferenceResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{
			code:       resp.StatusCode,
			body:       strings.TrimSpace(string(body)),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}

	return &InferenceResponse{
		Text:       decoded.Choices[0].Message.Content,
		TokensUsed: decoded.Usage.TotalTokens,
	}, nil
}

// retryDelay decides whether err warrants another attempt and how long to wait.
func (c *ServerClient) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= c.maxRetries || ctx.Err() != nil {
		return 0, false
	}
	var se *statusError
	if errors.As(err, &se) {
		if !se.retryable() {
			return 0, false
		}
		if se.retryAfter > 0 {
			return se.retryAfter, true
		}
		return c.backoff(attempt), true
	}
	if !isRetryableError(err) {
		return 0, false
	}
	return c.backoff(attempt), true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// parseRetryAfter reads the delay-seconds form of Retry-After, capped at a minute.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	if secs > 60 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}

// GetContextWindow returns the configured context size, 0 when unknown.
func (c *ServerClient) GetContextWindow() int {
	return c.contextSize
}

// transportFailures are substrings of dial and read errors worth retrying.
var transportFailures = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"deadline exceeded",
	"i/o timeout",
	"eof",
}

// isRetryableError reports whether a transport error is transient.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range transportFailures {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Close releases idle connections.
func (c *ServerClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
