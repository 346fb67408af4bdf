package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Backend with the official OpenAI SDK.
type OpenAIClient struct {
	client      openai.Client
	model       string
	contextSize int
}

// OpenAIClientConfig configures the SDK client
type OpenAIClientConfig struct {
	APIKey      string
	BaseURL     string // Optional, for proxies and compatible gateways
	Model       string
	ContextSize int
	Timeout     time.Duration
	MaxRetries  int
}

// NewOpenAIClient creates a client backed by openai-go.
func NewOpenAIClient(cfg OpenAIClientConfig) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		contextSize: cfg.ContextSize,
	}
}

// Infer sends one system+user exchange to the chat completions endpoint.
func (c *OpenAIClient) Infer(ctx context.Context, req *InferenceRequest) (*InferenceResponse, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Metadata) > 0 {
		params.Metadata = req.Metadata
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &InferenceResponse{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

// GetContextWindow returns the configured context window size
func (c *OpenAIClient) GetContextWindow() int {
	return c.contextSize
}
