// Package llm provides chat-completion backends used by the pipeline.
package llm

import (
	"context"
)

// Backend represents an LLM inference backend
type Backend interface {
	// Infer performs one-shot inference
	Infer(ctx context.Context, req *InferenceRequest) (*InferenceResponse, error)

	// GetContextWindow returns the context window size
	GetContextWindow() int
}

// InferenceRequest represents a request for inference
type InferenceRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int

	// Metadata is forwarded for provider-side usage tracking
	Metadata map[string]string
}

// InferenceResponse represents a response from inference
type InferenceResponse struct {
	Text       string
	TokensUsed int
}
