package state

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/store"
)

// AddChatSession creates a session and makes it current. An empty title
// defaults to "Chat N".
func (c *Container) AddChatSession(title string) model.ChatSession {
	var created model.ChatSession
	_ = c.update(func(b *batch) error {
		title = strings.TrimSpace(title)
		if title == "" {
			title = fmt.Sprintf("Chat %d", len(c.chatSessions)+1)
		}
		created = model.ChatSession{
			ID:        c.newID(),
			Title:     title,
			Messages:  []model.ChatMessage{},
			CreatedAt: c.now(),
		}
		c.chatSessions = append(c.chatSessions, created)
		c.persistLocked(store.FieldChatSessions, c.chatSessions)
		b.add(ChatSessionsChanged, model.CloneSessions(c.chatSessions))
		c.setCurrentLocked(b, created.ID)
		return nil
	})
	return created.Clone()
}

// UpdateChatSessionTitle renames a session. An unknown id is ignored.
func (c *Container) UpdateChatSessionTitle(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &model.ValidationError{Entity: "chatSession", Field: "title", Reason: "must not be empty"}
	}
	return c.update(func(b *batch) error {
		i := c.sessionIndexLocked(id)
		if i < 0 {
			return nil
		}
		c.chatSessions[i].Title = title
		c.sessionsChangedLocked(b, id)
		return nil
	})
}

// DeleteChatSession removes a session. When it was current, the pointer
// moves to the first remaining session, or to none, in the same step.
func (c *Container) DeleteChatSession(id string) {
	_ = c.update(func(b *batch) error {
		i := c.sessionIndexLocked(id)
		if i < 0 {
			return nil
		}
		c.chatSessions = slices.Delete(c.chatSessions, i, i+1)
		c.persistLocked(store.FieldChatSessions, c.chatSessions)
		b.add(ChatSessionsChanged, model.CloneSessions(c.chatSessions))

		if c.currentChatID == id {
			next := ""
			if len(c.chatSessions) > 0 {
				next = c.chatSessions[0].ID
			}
			c.setCurrentLocked(b, next)
		}
		return nil
	})
}

// SetCurrentChatSession points the current session at id. An unknown id is
// ignored.
func (c *Container) SetCurrentChatSession(id string) {
	_ = c.update(func(b *batch) error {
		if c.sessionIndexLocked(id) < 0 {
			return nil
		}
		c.setCurrentLocked(b, id)
		return nil
	})
}

// setCurrentLocked stores the pointer; "" means no current session.
func (c *Container) setCurrentLocked(b *batch, id string) {
	c.currentChatID = id
	var persisted *string
	if id != "" {
		persisted = &id
	}
	c.persistLocked(store.FieldCurrentChatSessionID, persisted)
	b.add(CurrentChatSessionChanged, c.currentSessionLocked())
}

// AddChatMessage appends a message to a session. It reports false when the
// session does not exist.
func (c *Container) AddChatMessage(sessionID string, sender model.Sender, text string) (model.ChatMessage, bool, error) {
	if !sender.Valid() {
		return model.ChatMessage{}, false, &model.ValidationError{Entity: "chatMessage", Field: "sender", Reason: "must be user or ai"}
	}
	if strings.TrimSpace(text) == "" {
		return model.ChatMessage{}, false, &model.ValidationError{Entity: "chatMessage", Field: "message", Reason: "must not be empty"}
	}

	msg := model.ChatMessage{ID: c.newID(), Sender: sender, Message: text, Timestamp: c.now()}
	found := false
	_ = c.update(func(b *batch) error {
		i := c.sessionIndexLocked(sessionID)
		if i < 0 {
			return nil
		}
		found = true
		c.chatSessions[i].Messages = append(c.chatSessions[i].Messages, msg)
		c.sessionsChangedLocked(b, sessionID)
		return nil
	})
	return msg, found, nil
}

// DeleteChatMessage removes one message from a session. Unknown ids are
// ignored.
func (c *Container) DeleteChatMessage(sessionID, messageID string) {
	_ = c.update(func(b *batch) error {
		i := c.sessionIndexLocked(sessionID)
		if i < 0 {
			return nil
		}
		msgs := c.chatSessions[i].Messages
		j := slices.IndexFunc(msgs, func(m model.ChatMessage) bool { return m.ID == messageID })
		if j < 0 {
			return nil
		}
		c.chatSessions[i].Messages = slices.Delete(msgs, j, j+1)
		c.sessionsChangedLocked(b, sessionID)
		return nil
	})
}

func (c *Container) sessionsChangedLocked(b *batch, touched string) {
	c.persistLocked(store.FieldChatSessions, c.chatSessions)
	b.add(ChatSessionsChanged, model.CloneSessions(c.chatSessions))
	if touched == c.currentChatID {
		b.add(CurrentChatSessionChanged, c.currentSessionLocked())
	}
}

func (c *Container) sessionIndexLocked(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(c.chatSessions, func(s model.ChatSession) bool { return s.ID == id })
}

func (c *Container) currentSessionLocked() *model.ChatSession {
	i := c.sessionIndexLocked(c.currentChatID)
	if i < 0 {
		return nil
	}
	s := c.chatSessions[i].Clone()
	return &s
}

// ChatSessions returns a deep copy of every session.
func (c *Container) ChatSessions() []model.ChatSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.CloneSessions(c.chatSessions)
}

// ChatSession returns a copy of the session with the given id.
func (c *Container) ChatSession(id string) (model.ChatSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.sessionIndexLocked(id)
	if i < 0 {
		return model.ChatSession{}, false
	}
	return c.chatSessions[i].Clone(), true
}

// CurrentChatSession returns a copy of the current session, or nil.
func (c *Container) CurrentChatSession() *model.ChatSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentSessionLocked()
}

// CurrentChatSessionID returns the current session id, or "" for none.
func (c *Container) CurrentChatSessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentChatID
}
