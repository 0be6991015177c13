package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/state"
)

const (
	// FallbackReply is stored as the assistant's answer when generation fails.
	FallbackReply = "Sorry, I'm having trouble connecting right now. Please try again later."

	// DefaultChatTitle names sessions whose title could not be generated.
	DefaultChatTitle = "New Chat"
)

// Chat answers messages in the current chat session.
type Chat struct {
	state        *state.Container
	gen          TextGenerator
	historyLimit int
	maxTokens    int
	log          zerolog.Logger
}

// NewChat creates a chat service backed by gen.
func NewChat(st *state.Container, gen TextGenerator, log zerolog.Logger) *Chat {
	return &Chat{
		state:        st,
		gen:          gen,
		historyLimit: DefaultHistoryLimit,
		maxTokens:    500,
		log:          log.With().Str("component", "chat").Logger(),
	}
}

// WithMaxTokens bounds reply length, returning c. Non-positive values are
// ignored.
func (c *Chat) WithMaxTokens(n int) *Chat {
	if n > 0 {
		c.maxTokens = n
	}
	return c
}

// Send posts text to the current session, creating one when none exists,
// and returns the assistant's reply. The first message of a session also
// names it. On provider failure FallbackReply is stored and returned along
// with the error.
func (c *Chat) Send(ctx context.Context, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, &model.ValidationError{Entity: "chatMessage", Field: "message", Reason: "must not be empty"}
	}

	session := c.state.CurrentChatSession()
	if session == nil {
		s := c.state.AddChatSession(DefaultChatTitle)
		session = &s
	}
	first := len(session.Messages) == 0

	if _, ok, err := c.state.AddChatMessage(session.ID, model.SenderUser, text); err != nil {
		return model.ChatMessage{}, err
	} else if !ok {
		return model.ChatMessage{}, fmt.Errorf("chat session %s not found", session.ID)
	}

	if first {
		if err := c.state.UpdateChatSessionTitle(session.ID, c.NameSession(ctx, text)); err != nil {
			c.log.Warn().Err(err).Str("session", session.ID).Msg("naming session")
		}
	}

	return c.Reply(ctx, session.ID, session.Messages, text)
}

// Reply generates an answer to prompt given the prior messages and stores it
// in the session.
func (c *Chat) Reply(ctx context.Context, sessionID string, prior []model.ChatMessage, prompt string) (model.ChatMessage, error) {
	history := ConversationFrom(prior, c.historyLimit)

	answer, genErr := c.gen.Generate(ctx, prompt, Options{
		MaxTokens: c.maxTokens,
		System:    SystemPrompt(c.state),
		History:   history.Messages(),
	})
	if genErr != nil {
		c.log.Warn().Err(genErr).Str("session", sessionID).Msg("chat reply failed")
		answer = FallbackReply
	}

	msg, ok, err := c.state.AddChatMessage(sessionID, model.SenderAI, answer)
	if err != nil {
		return model.ChatMessage{}, err
	}
	if !ok {
		// The session was deleted while the provider was answering.
		c.log.Debug().Str("session", sessionID).Msg("dropping reply for deleted session")
	}
	return msg, genErr
}

// NameSession asks the provider for a short title describing message.
func (c *Chat) NameSession(ctx context.Context, message string) string {
	prompt := fmt.Sprintf(
		"Given the following initial chat message, generate a very concise (3-5 words) and descriptive title for the chat session. "+
			"The title should capture the main topic.\nInitial Message: %q\nChat Title:", message)

	title, err := c.gen.Generate(ctx, prompt, Options{MaxTokens: 15, Temperature: 0.5})
	if err != nil {
		c.log.Debug().Err(err).Msg("naming chat session")
		return DefaultChatTitle
	}
	title = strings.Trim(strings.TrimSpace(title), `"'`)
	if title == "" {
		return DefaultChatTitle
	}
	return title
}
