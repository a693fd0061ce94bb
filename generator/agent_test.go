package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingLLM struct{}

func (failingLLM) Complete(context.Context, Prompt) (string, error) {
	return "", errors.New("connection refused")
}

func TestNewAgentRequiresLLM(t *testing.T) {
	_, err := NewAgent(nil, nil)
	assert.Error(t, err)
}

func TestAgentGenerateSwitchesPrompt(t *testing.T) {
	llm := NewMockLLM(validSpec, "not json")
	agent, err := NewAgent(llm, zaptest.NewLogger(t))
	require.NoError(t, err)

	brief := Brief{Topic: "circles"}
	res, err := agent.Generate(context.Background(), brief, nil)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, validSpec, res.Raw)

	res, err = agent.Generate(context.Background(), brief, []Exchange{{Reply: res.Raw, Feedback: "fix Foo"}})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.NotEmpty(t, res.Problem)
	assert.Equal(t, "not json", res.Raw)

	prompts := llm.Prompts()
	require.Len(t, prompts, 2)
	assert.NotContains(t, prompts[0].User, "fix Foo")
	assert.Empty(t, prompts[0].History)
	assert.Contains(t, prompts[1].User, "fix Foo")
	require.Len(t, prompts[1].History, 2)
	assert.Equal(t, validSpec, prompts[1].History[1].Content)
}

func TestAgentGenerateTransportError(t *testing.T) {
	agent, err := NewAgent(failingLLM{}, nil)
	require.NoError(t, err)
	_, err = agent.Generate(context.Background(), Brief{Topic: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMockLLMRepeatsLastReply(t *testing.T) {
	m := NewMockLLM("a", "b")
	for _, want := range []string{"a", "b", "b"} {
		got, err := m.Complete(context.Background(), Prompt{})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := NewMockLLM().Complete(context.Background(), Prompt{})
	assert.Error(t, err)
}
