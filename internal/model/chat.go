package model

import "time"

// Sender identifies who wrote a chat message.
type Sender string

// Chat message senders.
const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// ChatMessage is one entry of a chat session.
type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is an ordered conversation with the assistant.
type ChatSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Clone returns a deep copy of s.
func (s ChatSession) Clone() ChatSession {
	msgs := make([]ChatMessage, len(s.Messages))
	copy(msgs, s.Messages)
	s.Messages = msgs
	return s
}

// CloneSessions deep-copies a slice of sessions.
func CloneSessions(in []ChatSession) []ChatSession {
	out := make([]ChatSession, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
