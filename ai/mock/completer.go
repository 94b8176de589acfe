package mock

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockCompleter is a test double for ai.Completer.
// Without CompleteFunc it replies with Response, or "mock answer" if that is empty.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

	// Response is the canned reply used when CompleteFunc is nil.
	Response string

	callCount atomic.Int64

	mu      sync.Mutex
	prompts []string
}

// NewMockCompleter creates a mock completer with a canned reply.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete records the prompt and returns the injected or canned reply.
func (m *MockCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, maxTokens)
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return "mock answer", nil
}

// CallCount returns the number of Complete calls.
func (m *MockCompleter) CallCount() int {
	return int(m.callCount.Load())
}

// LastPrompt returns the most recent prompt, or "" if none.
func (m *MockCompleter) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// Reset clears the call count, recorded prompts and injected behavior.
func (m *MockCompleter) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.prompts = nil
	m.mu.Unlock()
	m.CompleteFunc = nil
	m.Response = ""
}
