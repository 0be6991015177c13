package ai

import "github.com/nhle/theora/internal/model"

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn of the history sent to a provider.
type Message struct {
	Role    Role
	Content string
}

// DefaultHistoryLimit bounds the chat history sent with each request.
const DefaultHistoryLimit = 20

// Conversation is an ordered message window. When the limit is reached the
// oldest messages are trimmed while the first one is kept, since it usually
// sets the topic of the session.
type Conversation struct {
	messages    []Message
	maxMessages int
}

// NewConversation creates an empty window holding at most maxMessages.
func NewConversation(maxMessages int) *Conversation {
	if maxMessages <= 0 {
		maxMessages = DefaultHistoryLimit
	}
	return &Conversation{
		messages:    make([]Message, 0, maxMessages),
		maxMessages: maxMessages,
	}
}

// ConversationFrom builds a window from stored chat messages.
func ConversationFrom(msgs []model.ChatMessage, maxMessages int) *Conversation {
	c := NewConversation(maxMessages)
	for _, m := range msgs {
		role := RoleUser
		if m.Sender == model.SenderAI {
			role = RoleAssistant
		}
		c.Add(role, m.Message)
	}
	return c
}

// Add appends a message, trimming from the second position on overflow.
func (c *Conversation) Add(role Role, content string) {
	c.messages = append(c.messages, Message{Role: role, Content: content})

	if len(c.messages) > c.maxMessages {
		trimmed := make([]Message, 0, c.maxMessages)
		trimmed = append(trimmed, c.messages[0])
		excess := len(c.messages) - c.maxMessages
		trimmed = append(trimmed, c.messages[1+excess:]...)
		c.messages = trimmed
	}
}

// Messages returns a copy of the window.
func (c *Conversation) Messages() []Message {
	result := make([]Message, len(c.messages))
	copy(result, c.messages)
	return result
}

// Len returns the number of messages in the window.
func (c *Conversation) Len() int {
	return len(c.messages)
}
