package completion

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a scripted completion client for tests. Replies are
// consumed in order; when the script runs out the last reply repeats.
type MockClient struct {
	mu       sync.Mutex
	replies  []string
	err      error
	index    int
	Requests []*ChatCompletionRequest
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock client that returns the given replies.
func NewMockClient(replies ...string) *MockClient {
	return &MockClient{replies: replies}
}

// Fail makes every subsequent call return err.
func (m *MockClient) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// CreateChatCompletion returns the next scripted reply.
func (m *MockClient) CreateChatCompletion(_ context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return nil, fmt.Errorf("mock completion client has no scripted replies")
	}

	i := m.index
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	m.index++

	return &ChatCompletionResponse{
		ID:    fmt.Sprintf("cmpl_mock_%d", i),
		Model: req.Model,
		Choices: []Choice{
			{Message: &ChatMessage{Role: "assistant", Content: m.replies[i]}},
		},
	}, nil
}
