package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/state"
)

func TestAddChatSessionBecomesCurrent(t *testing.T) {
	f := signedIn(t)

	first := f.c.AddChatSession("")
	assert.Equal(t, "Chat 1", first.Title)
	second := f.c.AddChatSession("Budget talk")

	assert.Equal(t, second.ID, f.c.CurrentChatSessionID())
	cur := f.c.CurrentChatSession()
	require.NotNil(t, cur)
	assert.Equal(t, "Budget talk", cur.Title)
	assert.Len(t, f.c.ChatSessions(), 2)
}

func TestDeleteCurrentChatSessionRepoints(t *testing.T) {
	f := signedIn(t)

	s1 := f.c.AddChatSession("one")
	s2 := f.c.AddChatSession("two")
	require.Equal(t, s2.ID, f.c.CurrentChatSessionID())

	r := record(f.bus, state.ChatSessionsChanged, state.CurrentChatSessionChanged)

	var observed string
	f.bus.Subscribe(state.ChatSessionsChanged, func(any) {
		observed = f.c.CurrentChatSessionID()
	})

	f.c.DeleteChatSession(s2.ID)

	assert.Equal(t, s1.ID, f.c.CurrentChatSessionID())
	assert.Equal(t, s1.ID, observed, "observers must never see a dangling pointer")
	assert.Equal(t, []string{state.ChatSessionsChanged, state.CurrentChatSessionChanged}, r.names())

	payload, ok := r.last(state.CurrentChatSessionChanged)
	require.True(t, ok)
	session := payload.(*model.ChatSession)
	require.NotNil(t, session)
	assert.Equal(t, s1.ID, session.ID)

	f.c.DeleteChatSession(s1.ID)
	assert.Empty(t, f.c.CurrentChatSessionID())
	assert.Nil(t, f.c.CurrentChatSession())

	payload, _ = r.last(state.CurrentChatSessionChanged)
	assert.Nil(t, payload.(*model.ChatSession))
}

func TestDeleteOtherSessionKeepsPointer(t *testing.T) {
	f := signedIn(t)

	s1 := f.c.AddChatSession("one")
	s2 := f.c.AddChatSession("two")
	r := record(f.bus, state.CurrentChatSessionChanged)

	f.c.DeleteChatSession(s1.ID)
	assert.Equal(t, s2.ID, f.c.CurrentChatSessionID())
	assert.Empty(t, r.names())
}

func TestChatMessages(t *testing.T) {
	f := signedIn(t)
	s := f.c.AddChatSession("help")
	r := record(f.bus, state.ChatSessionsChanged, state.CurrentChatSessionChanged)

	msg, found, err := f.c.AddChatMessage(s.ID, model.SenderUser, "How do I save more?")
	require.NoError(t, err)
	require.True(t, found)
	_, _, err = f.c.AddChatMessage(s.ID, model.SenderAI, "Cut data spending.")
	require.NoError(t, err)

	got, ok := f.c.ChatSession(s.ID)
	require.True(t, ok)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, model.SenderUser, got.Messages[0].Sender)
	assert.Equal(t, []string{
		state.ChatSessionsChanged, state.CurrentChatSessionChanged,
		state.ChatSessionsChanged, state.CurrentChatSessionChanged,
	}, r.names())

	f.c.DeleteChatMessage(s.ID, msg.ID)
	got, _ = f.c.ChatSession(s.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, model.SenderAI, got.Messages[0].Sender)

	_, _, err = f.c.AddChatMessage(s.ID, "bot", "x")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, _, err = f.c.AddChatMessage(s.ID, model.SenderUser, " ")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestChatSessionCopiesAreIndependent(t *testing.T) {
	f := signedIn(t)
	s := f.c.AddChatSession("x")
	_, _, err := f.c.AddChatMessage(s.ID, model.SenderUser, "hi")
	require.NoError(t, err)

	got, _ := f.c.ChatSession(s.ID)
	got.Messages[0].Message = "changed"

	again, _ := f.c.ChatSession(s.ID)
	assert.Equal(t, "hi", again.Messages[0].Message)
}

func TestUpdateChatSessionTitle(t *testing.T) {
	f := signedIn(t)
	s := f.c.AddChatSession("x")

	require.NoError(t, f.c.UpdateChatSessionTitle(s.ID, "Savings plan"))
	got, _ := f.c.ChatSession(s.ID)
	assert.Equal(t, "Savings plan", got.Title)

	assert.ErrorIs(t, f.c.UpdateChatSessionTitle(s.ID, ""), model.ErrValidation)
}

func TestSetCurrentChatSession(t *testing.T) {
	f := signedIn(t)
	s1 := f.c.AddChatSession("one")
	f.c.AddChatSession("two")

	f.c.SetCurrentChatSession(s1.ID)
	assert.Equal(t, s1.ID, f.c.CurrentChatSessionID())
}
