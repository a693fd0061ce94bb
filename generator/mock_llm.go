package generator

import (
	"context"
	"errors"
	"sync"
)

// MockLLM 按顺序回放预设回复，不调用真实模型；脚本用完后重复最后一条。
// 收到的 Prompt 会被记录，便于测试检查。
type MockLLM struct {
	mu      sync.Mutex
	replies []string
	prompts []Prompt
}

func NewMockLLM(replies ...string) *MockLLM {
	return &MockLLM{replies: replies}
}

func (m *MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if len(m.replies) == 0 {
		return "", errors.New("mock llm: no scripted replies")
	}
	i := len(m.prompts) - 1
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	return m.replies[i], nil
}

// Prompts returns the prompts received so far.
func (m *MockLLM) Prompts() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Prompt(nil), m.prompts...)
}
