// Package testutil provides mock implementations shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/soypete/autopilot/pkg/llm"
)

// MockLLMBackend is a programmable LLM backend for testing.
// Rules registered with On are matched first against the prompt text;
// anything unmatched pops the response queue.
type MockLLMBackend struct {
	mu sync.Mutex

	// Responses is a queue of responses to return for unmatched calls.
	Responses []*llm.InferenceResponse

	// Errors is a queue of errors parallel to Responses.
	Errors []error

	// InferCalls records all calls made to Infer for verification.
	InferCalls []InferCall

	// ContextWindow is the mock context window size.
	ContextWindow int

	// Delay is applied before answering, honouring context cancellation.
	Delay time.Duration

	rules       []rule
	currentCall int
}

type rule struct {
	substr string
	text   string
	err    error
	once   bool
	used   bool
}

// InferCall records a single call to the Infer method.
type InferCall struct {
	Request   *llm.InferenceRequest
	Timestamp time.Time
}

// NewMockLLMBackend creates a new mock backend with default settings.
func NewMockLLMBackend() *MockLLMBackend {
	return &MockLLMBackend{ContextWindow: 128000}
}

// AddResponse queues a text response.
func (m *MockLLMBackend) AddResponse(text string) *MockLLMBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, &llm.InferenceResponse{Text: text, TokensUsed: len(text) / 4})
	m.Errors = append(m.Errors, nil)
	return m
}

// AddError queues an error.
func (m *MockLLMBackend) AddError(err error) *MockLLMBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, nil)
	m.Errors = append(m.Errors, err)
	return m
}

// On answers every call whose system or user prompt contains substr.
func (m *MockLLMBackend) On(substr, text string) *MockLLMBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{substr: substr, text: text})
	return m
}

// OnError fails every call whose prompt contains substr.
func (m *MockLLMBackend) OnError(substr string, err error) *MockLLMBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{substr: substr, err: err})
	return m
}

// Once makes the most recently added rule fire a single time.
func (m *MockLLMBackend) Once() *MockLLMBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rules) > 0 {
		m.rules[len(m.rules)-1].once = true
	}
	return m
}

// Infer implements llm.Backend.
func (m *MockLLMBackend) Infer(ctx context.Context, req *llm.InferenceRequest) (*llm.InferenceResponse, error) {
	m.mu.Lock()
	delay := m.Delay
	m.InferCalls = append(m.InferCalls, InferCall{Request: req, Timestamp: time.Now()})
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prompt := req.SystemPrompt + "\n" + req.UserPrompt
	for i := range m.rules {
		r := &m.rules[i]
		if r.used || !strings.Contains(prompt, r.substr) {
			continue
		}
		if r.once {
			r.used = true
		}
		if r.err != nil {
			return nil, r.err
		}
		return &llm.InferenceResponse{Text: r.text, TokensUsed: len(r.text) / 4}, nil
	}

	if m.currentCall >= len(m.Responses) {
		return nil, fmt.Errorf("mock: no more responses queued (call %d)", m.currentCall)
	}
	resp := m.Responses[m.currentCall]
	err := m.Errors[m.currentCall]
	m.currentCall++
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetContextWindow implements llm.Backend.
func (m *MockLLMBackend) GetContextWindow() int {
	return m.ContextWindow
}

// GetCallCount returns the number of Infer calls made.
func (m *MockLLMBackend) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.InferCalls)
}

// CallsMatching returns the recorded requests whose prompt contains substr.
func (m *MockLLMBackend) CallsMatching(substr string) []*llm.InferenceRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*llm.InferenceRequest
	for _, c := range m.InferCalls {
		if strings.Contains(c.Request.SystemPrompt+"\n"+c.Request.UserPrompt, substr) {
			out = append(out, c.Request)
		}
	}
	return out
}
