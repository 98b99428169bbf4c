package mock

import (
	"context"
	"sync"

	"github.com/poiesic/druglabel/ai"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, echoes the prompt (or an empty tag list in JSON mode).
	GenerateFunc func(ctx context.Context, req ai.Request) (string, error)

	mu        sync.Mutex
	callCount int
	requests  []ai.Request
}

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate records the request and returns the injected or default response.
func (m *MockGenerator) Generate(ctx context.Context, req ai.Request) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.requests = append(m.requests, req)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if req.JSONMode {
		return `{"tags": []}`, nil
	}
	return req.Prompt, nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns a copy of every request received, in arrival order.
func (m *MockGenerator) Requests() []ai.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.Request(nil), m.requests...)
}

// Reset clears the call count, recorded requests and custom function.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.requests = nil
	m.GenerateFunc = nil
}
