package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/reconcile"
	"github.com/nhle/theora/internal/remote"
	"github.com/nhle/theora/internal/store"
	"github.com/nhle/theora/internal/testutil"
)

var (
	t1 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Hour)
)

func env(t *testing.T, data any, at time.Time) store.Envelope {
	t.Helper()
	e, err := store.NewEnvelope(data, at)
	require.NoError(t, err)
	return e
}

func setup(t *testing.T) (*store.SQLiteStore, *remote.MemoryDocumentStore, *reconcile.Engine) {
	t.Helper()
	local := testutil.NewTestStore(t)
	docs := remote.NewMemoryDocumentStore()
	eng := reconcile.NewEngine(local, remote.NewAdapter(docs, zerolog.Nop()), zerolog.Nop())
	return local, docs, eng
}

func TestRemoteNewerWinsAndIsWrittenBack(t *testing.T) {
	local, docs, eng := setup(t)
	ctx := context.Background()

	localTodos := []model.Todo{{ID: "a", Title: "local"}}
	remoteTodos := []model.Todo{{ID: "b", Title: "remote"}}
	require.NoError(t, local.Write(store.UserKey("u1", store.FieldTodos), env(t, localTodos, t1)))
	require.NoError(t, remote.NewAdapter(docs, zerolog.Nop()).SetField(ctx, "u1", store.FieldTodos, env(t, remoteTodos, t2)))

	res := eng.Reconcile(ctx, "u1", []string{store.FieldTodos}, nil)
	assert.Equal(t, reconcile.SourceRemote, res.Sources[store.FieldTodos])

	var got []model.Todo
	require.True(t, res.Decode(store.FieldTodos, &got))
	assert.Equal(t, remoteTodos, got)

	var stored store.Envelope
	require.True(t, local.ReadInto(store.UserKey("u1", store.FieldTodos), &stored))
	assert.True(t, stored.Timestamp().Equal(t2))
}

func TestLocalNewerOrEqualWins(t *testing.T) {
	local, docs, eng := setup(t)
	ctx := context.Background()
	adapter := remote.NewAdapter(docs, zerolog.Nop())

	require.NoError(t, local.Write(store.UserKey("u1", store.FieldBudget), env(t, model.Budget{Limit: decimal.NewFromInt(1)}, t2)))
	require.NoError(t, adapter.SetField(ctx, "u1", store.FieldBudget, env(t, model.Budget{Limit: decimal.NewFromInt(2)}, t1)))

	require.NoError(t, local.Write(store.UserKey("u1", store.FieldSettings), env(t, model.Settings{SapaMode: true}, t1)))
	require.NoError(t, adapter.SetField(ctx, "u1", store.FieldSettings, env(t, model.Settings{HustleMode: true}, t1)))

	res := eng.Reconcile(ctx, "u1", []string{store.FieldBudget, store.FieldSettings}, nil)
	assert.Equal(t, reconcile.SourceLocal, res.Sources[store.FieldBudget])
	assert.Equal(t, reconcile.SourceLocal, res.Sources[store.FieldSettings])

	var s model.Settings
	require.True(t, res.Decode(store.FieldSettings, &s))
	assert.True(t, s.SapaMode)
}

func TestRemoteFailureFallsBackToLocal(t *testing.T) {
	local, docs, eng := setup(t)
	docs.FailGets(errors.New("offline"))

	budget := model.DefaultBudget()
	budget.Limit = decimal.NewFromInt(75000)
	require.NoError(t, local.Write(store.UserKey("u1", store.FieldBudget), env(t, budget, t1)))

	res := eng.Reconcile(context.Background(), "u1", []string{store.FieldBudget, store.FieldTodos}, nil)
	require.Error(t, res.RemoteErr)
	assert.Equal(t, reconcile.SourceLocal, res.Sources[store.FieldBudget])
	assert.Equal(t, reconcile.SourceDefault, res.Sources[store.FieldTodos])

	var got model.Budget
	require.True(t, res.Decode(store.FieldBudget, &got))
	assert.True(t, got.Limit.Equal(budget.Limit))
}

func TestFieldsAreIndependent(t *testing.T) {
	local, docs, eng := setup(t)
	ctx := context.Background()
	adapter := remote.NewAdapter(docs, zerolog.Nop())

	require.NoError(t, local.Write(store.UserKey("u1", store.FieldTodos), env(t, []model.Todo{}, t2)))
	require.NoError(t, adapter.SetField(ctx, "u1", store.FieldTodos, env(t, []model.Todo{{ID: "old"}}, t1)))
	require.NoError(t, adapter.SetField(ctx, "u1", store.FieldAIProvider, env(t, model.ProviderGemini, t1)))

	res := eng.Reconcile(ctx, "u1", []string{store.FieldTodos, store.FieldAIProvider, store.FieldEvents}, nil)
	assert.Equal(t, reconcile.SourceLocal, res.Sources[store.FieldTodos])
	assert.Equal(t, reconcile.SourceRemote, res.Sources[store.FieldAIProvider])
	assert.Equal(t, reconcile.SourceDefault, res.Sources[store.FieldEvents])

	var provider string
	require.True(t, res.Decode(store.FieldAIProvider, &provider))
	assert.Equal(t, model.ProviderGemini, provider)
}

func TestMalformedTimestampLosesToValidOne(t *testing.T) {
	local, docs, eng := setup(t)
	ctx := context.Background()

	bad := env(t, "local", t1)
	bad.LastUpdated = "yesterday-ish"
	require.NoError(t, local.Write(store.UserKey("u1", store.FieldAIResponseStyle), bad))
	require.NoError(t, remote.NewAdapter(docs, zerolog.Nop()).SetField(ctx, "u1", store.FieldAIResponseStyle, env(t, "remote", t1)))

	res := eng.Reconcile(ctx, "u1", []string{store.FieldAIResponseStyle}, nil)
	assert.Equal(t, reconcile.SourceRemote, res.Sources[store.FieldAIResponseStyle])
}

func TestLocalOnlyEngine(t *testing.T) {
	local := testutil.NewTestStore(t)
	eng := reconcile.NewEngine(local, remote.NewAdapter(nil, zerolog.Nop()), zerolog.Nop())
	require.NoError(t, local.Write(store.UserKey("u1", store.FieldTodos), env(t, []model.Todo{{ID: "a"}}, t1)))

	res := eng.Reconcile(context.Background(), "u1", store.SyncedFields, nil)
	assert.NoError(t, res.RemoteErr)
	assert.Equal(t, reconcile.SourceLocal, res.Sources[store.FieldTodos])
	assert.Len(t, res.Sources, len(store.SyncedFields))
}

func TestUndecodableRemoteLosesToValidLocal(t *testing.T) {
	local, docs, eng := setup(t)
	ctx := context.Background()

	kept := []model.Todo{{ID: "keep", Title: "local"}}
	require.NoError(t, local.Write(store.UserKey("u1", store.FieldTodos), env(t, kept, t1)))
	require.NoError(t, remote.NewAdapter(docs, zerolog.Nop()).SetField(ctx, "u1", store.FieldTodos, env(t, "corrupt", t2)))

	isList := func(field string, e store.Envelope) bool {
		var v []model.Todo
		return e.Decode(&v) == nil
	}
	res := eng.Reconcile(ctx, "u1", []string{store.FieldTodos}, isList)
	assert.Equal(t, reconcile.SourceLocal, res.Sources[store.FieldTodos])

	var got []model.Todo
	require.True(t, res.Decode(store.FieldTodos, &got))
	assert.Equal(t, kept, got)

	var stored store.Envelope
	require.True(t, local.ReadInto(store.UserKey("u1", store.FieldTodos), &stored))
	assert.True(t, stored.Timestamp().Equal(t1), "local copy must not be overwritten")
}
