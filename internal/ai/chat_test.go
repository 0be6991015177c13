package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/ai"
	"github.com/nhle/theora/internal/model"
)

func TestChat_SendStartsAndNamesSession(t *testing.T) {
	st := newContainer(t)
	gen := &fakeGenerator{replies: []string{`"Budget Planning Help"`, "Track every naira."}}
	chat := ai.NewChat(st, gen, zerolog.Nop())

	reply, err := chat.Send(context.Background(), "How do I budget?")
	require.NoError(t, err)
	assert.Equal(t, model.SenderAI, reply.Sender)
	assert.Equal(t, "Track every naira.", reply.Message)

	session := st.CurrentChatSession()
	require.NotNil(t, session)
	assert.Equal(t, "Budget Planning Help", session.Title)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, model.SenderUser, session.Messages[0].Sender)

	calls := gen.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 15, calls[0].Opts.MaxTokens)
	assert.Empty(t, calls[1].Opts.History)
	assert.Contains(t, calls[1].Opts.System, "Budget limit:")
}

func TestChat_SendCarriesHistory(t *testing.T) {
	st := newContainer(t)
	gen := &fakeGenerator{replies: []string{"Title", "first answer", "second answer"}}
	chat := ai.NewChat(st, gen, zerolog.Nop())

	_, err := chat.Send(context.Background(), "first")
	require.NoError(t, err)
	_, err = chat.Send(context.Background(), "second")
	require.NoError(t, err)

	calls := gen.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "second", calls[2].Prompt)
	assert.Equal(t, []ai.Message{
		{Role: ai.RoleUser, Content: "first"},
		{Role: ai.RoleAssistant, Content: "first answer"},
	}, calls[2].Opts.History)
	assert.Equal(t, "Title", st.CurrentChatSession().Title)
}

func TestChat_FailureStoresFallbackReply(t *testing.T) {
	st := newContainer(t)
	down := &ai.ProviderError{Provider: "router", Err: errors.New("offline")}
	chat := ai.NewChat(st, &fakeGenerator{err: down}, zerolog.Nop())

	reply, err := chat.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, down)
	assert.Equal(t, ai.FallbackReply, reply.Message)

	session := st.CurrentChatSession()
	require.NotNil(t, session)
	assert.Equal(t, ai.DefaultChatTitle, session.Title)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, ai.FallbackReply, session.Messages[1].Message)
}

func TestChat_SendRejectsEmptyText(t *testing.T) {
	st := newContainer(t)
	chat := ai.NewChat(st, &fakeGenerator{}, zerolog.Nop())

	_, err := chat.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Empty(t, st.ChatSessions())
}

func TestChat_NameSessionFallsBackOnEmptyTitle(t *testing.T) {
	chat := ai.NewChat(newContainer(t), &fakeGenerator{replies: []string{`""`}}, zerolog.Nop())
	assert.Equal(t, ai.DefaultChatTitle, chat.NameSession(context.Background(), "hi"))
}
