package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/auth"
	"github.com/nhle/theora/internal/credential"
	"github.com/nhle/theora/internal/events"
	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/remote"
	"github.com/nhle/theora/internal/state"
	"github.com/nhle/theora/internal/testutil"
)

func TestLocalProvider_SessionSurvivesRestart(t *testing.T) {
	creds := credential.NewStore(keyring.NewArrayKeyring(nil))

	p := auth.NewLocalProvider(creds, zerolog.Nop())
	assert.Nil(t, p.CurrentIdentity())
	require.NoError(t, p.SignIn(model.Identity{ID: "u1", Email: "ada@example.com"}))

	restarted := auth.NewLocalProvider(creds, zerolog.Nop())
	id := restarted.CurrentIdentity()
	require.NotNil(t, id)
	assert.Equal(t, "u1", id.ID)

	require.NoError(t, restarted.SignOut())
	assert.Nil(t, auth.NewLocalProvider(creds, zerolog.Nop()).CurrentIdentity())
}

func TestLocalProvider_RejectsEmptyID(t *testing.T) {
	p := auth.NewLocalProvider(credential.NewStore(keyring.NewArrayKeyring(nil)), zerolog.Nop())
	assert.ErrorIs(t, p.SignIn(model.Identity{ID: " "}), model.ErrValidation)
}

func TestLocalProvider_ListenersAndCancel(t *testing.T) {
	p := auth.NewLocalProvider(credential.NewStore(keyring.NewArrayKeyring(nil)), zerolog.Nop())

	var seen []*model.Identity
	cancel := p.OnIdentityChanged(func(id *model.Identity) { seen = append(seen, id) })

	require.NoError(t, p.SignIn(model.Identity{ID: "u1"}))
	require.NoError(t, p.SignOut())
	cancel()
	require.NoError(t, p.SignIn(model.Identity{ID: "u2"}))

	require.Len(t, seen, 2)
	assert.Equal(t, "u1", seen[0].ID)
	assert.Nil(t, seen[1])
}

func TestBind_FollowsProvider(t *testing.T) {
	ctx := context.Background()
	local := testutil.NewTestStore(t)
	docs := remote.NewMemoryDocumentStore()
	adapter := remote.NewAdapter(docs, zerolog.Nop())
	profiles := auth.NewProfileStore(local, adapter, zerolog.Nop())
	require.NoError(t, profiles.Set(ctx, "u1", model.Profile{DisplayName: "Ada"}))

	c := state.New(events.NewBus(zerolog.Nop()), local, state.WithProfiles(profiles))
	p := auth.NewLocalProvider(credential.NewStore(keyring.NewArrayKeyring(nil)), zerolog.Nop())

	unbind, err := auth.Bind(ctx, p, c, zerolog.Nop())
	require.NoError(t, err)
	defer unbind()
	assert.Nil(t, c.User())

	require.NoError(t, p.SignIn(model.Identity{ID: "u1"}))
	require.NotNil(t, c.User())
	assert.Equal(t, "Ada", c.UserName())

	require.NoError(t, p.SignOut())
	assert.Nil(t, c.User())
}

func TestProfileStore_FallsBackToCache(t *testing.T) {
	ctx := context.Background()
	local := testutil.NewTestStore(t)
	docs := remote.NewMemoryDocumentStore()
	profiles := auth.NewProfileStore(local, remote.NewAdapter(docs, zerolog.Nop()), zerolog.Nop())

	require.NoError(t, profiles.Set(ctx, "u1", model.Profile{DisplayName: "Ada", Email: "ada@example.com"}))
	p, err := profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.DisplayName)

	docs.FailGets(errors.New("offline"))
	p, err = profiles.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "ada@example.com", p.Email)

	missing, err := profiles.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
