package llm

import (
	"context"
	"sync"
)

// MockProvider is a canned-response Provider for tests.
type MockProvider struct {
	mu       sync.Mutex
	Response string
	Err      error
	Requests []CompletionRequest
}

var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) Name() string { return "mock" }

// Complete records the request and returns the canned response or error.
func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (*CompletionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &CompletionResult{Content: m.Response}, nil
}
