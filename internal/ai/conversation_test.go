package ai_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/ai"
	"github.com/nhle/theora/internal/model"
)

func TestConversation_TrimKeepsFirstMessage(t *testing.T) {
	c := ai.NewConversation(3)
	for i := range 5 {
		c.Add(ai.RoleUser, fmt.Sprintf("m%d", i))
	}

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "m0", msgs[0].Content)
	assert.Equal(t, "m3", msgs[1].Content)
	assert.Equal(t, "m4", msgs[2].Content)
}

func TestConversation_MessagesReturnsCopy(t *testing.T) {
	c := ai.NewConversation(0)
	c.Add(ai.RoleUser, "hello")

	msgs := c.Messages()
	msgs[0].Content = "changed"

	assert.Equal(t, "hello", c.Messages()[0].Content)
	assert.Equal(t, 1, c.Len())
}

func TestConversationFrom_MapsSenders(t *testing.T) {
	c := ai.ConversationFrom([]model.ChatMessage{
		{Sender: model.SenderUser, Message: "hi"},
		{Sender: model.SenderAI, Message: "hello"},
	}, 10)

	assert.Equal(t, []ai.Message{
		{Role: ai.RoleUser, Content: "hi"},
		{Role: ai.RoleAssistant, Content: "hello"},
	}, c.Messages())
}
