package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retryPromptFixture() Prompt {
	return BuildRetryPrompt(Brief{Topic: "circles"}, []Exchange{
		{Reply: "first reply", Feedback: "first feedback"},
		{Reply: "second reply", Feedback: "second feedback"},
	})
}

func TestChatMessagesOrder(t *testing.T) {
	msgs := chatMessages(retryPromptFixture())

	// system, brief, reply, feedback, reply, current turn
	require.Len(t, msgs, 6)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
	assert.NotNil(t, msgs[3].OfUser)
	assert.NotNil(t, msgs[4].OfAssistant)
	assert.NotNil(t, msgs[5].OfUser)
}

func TestGeminiContentsRoles(t *testing.T) {
	contents := geminiContents(retryPromptFixture())

	require.Len(t, contents, 5)
	var roles []string
	for _, c := range contents {
		roles = append(roles, c.Role)
	}
	assert.Equal(t, []string{"user", "model", "user", "model", "user"}, roles)
	assert.Equal(t, "second reply", contents[3].Parts[0].Text)
	assert.Contains(t, contents[4].Parts[0].Text, "second feedback")
}
