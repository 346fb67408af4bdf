package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/soypete/autopilot/pkg/images"
)

// MockImageGenerator returns deterministic image URLs.
type MockImageGenerator struct {
	mu sync.Mutex

	// Err, when set, is returned for every request.
	Err error

	// FailPrompts lists prompt substrings that produce an error.
	FailPrompts []string

	Requests []images.Request
}

// NewMockImageGenerator creates a generator that always succeeds.
func NewMockImageGenerator() *MockImageGenerator {
	return &MockImageGenerator{}
}

// Name implements images.Generator.
func (m *MockImageGenerator) Name() string { return "mock" }

// Generate implements images.Generator.
func (m *MockImageGenerator) Generate(ctx context.Context, req images.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	n := len(m.Requests)

	if m.Err != nil {
		return "", m.Err
	}
	for _, s := range m.FailPrompts {
		if s != "" && strings.Contains(req.Prompt, s) {
			return "", fmt.Errorf("mock image failure for %q", s)
		}
	}
	return fmt.Sprintf("https://images.test/%d.png", n), nil
}

// CallCount returns the number of Generate calls.
func (m *MockImageGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
