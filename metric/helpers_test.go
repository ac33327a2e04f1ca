package metric

import (
	"context"
	"errors"

	"github.com/qualifire-dev/rogue/llm"
)

// mockClient returns scripted responses in order, repeating the last one.
type mockClient struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (m *mockClient) Complete(_ context.Context, messages []llm.Message, _ ...llm.CompletionOption) (*llm.CompletionResponse, error) {
	idx := m.calls
	m.calls++

	for _, msg := range messages {
		m.prompts = append(m.prompts, msg.Content)
	}

	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}

	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return &llm.CompletionResponse{Content: m.responses[idx], FinishReason: "stop"}, nil
}

func (m *mockClient) Model() string { return "mock/judge" }

func newTestJudge(responses ...string) *Judge {
	return NewJudge(JudgeOptions{Client: &mockClient{responses: responses}, MaxRetries: 1})
}
