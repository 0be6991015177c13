package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/store"
	"github.com/nhle/theora/internal/testutil"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteThenRead(t *testing.T) {
	s := testutil.NewTestStore(t)

	require.NoError(t, s.Write("k", sample{Name: "a", Count: 2}))

	got := store.Read(s, "k", sample{})
	assert.Equal(t, sample{Name: "a", Count: 2}, got)
}

func TestWriteOverwrites(t *testing.T) {
	s := testutil.NewTestStore(t)

	require.NoError(t, s.Write("k", 1))
	require.NoError(t, s.Write("k", 2))

	assert.Equal(t, 2, store.Read(s, "k", 0))
}

func TestReadMissingReturnsDefault(t *testing.T) {
	s := testutil.NewTestStore(t)

	got := store.Read(s, "missing", sample{Name: "default"})
	assert.Equal(t, "default", got.Name)
}

func TestReadUndecodableReturnsDefault(t *testing.T) {
	s := testutil.NewTestStore(t)

	require.NoError(t, s.Write("k", "not a struct"))

	got := store.Read(s, "k", sample{Name: "default"})
	assert.Equal(t, "default", got.Name)
}

func TestRemoveAndClearAll(t *testing.T) {
	s := testutil.NewTestStore(t)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Write(k, k))
	}

	require.NoError(t, s.Remove("a"))
	require.NoError(t, s.Remove("a"))
	require.NoError(t, s.ClearAll([]string{"b", "zzz"}))

	assert.False(t, s.ReadInto("a", new(string)))
	assert.False(t, s.ReadInto("b", new(string)))
	assert.Equal(t, "c", store.Read(s, "c", ""))
}

func TestKeysByPrefix(t *testing.T) {
	s := testutil.NewTestStore(t)

	require.NoError(t, s.Write(store.UserKey("u1", store.FieldTodos), []int{}))
	require.NoError(t, s.Write(store.UserKey("u1", store.FieldBudget), 1))
	require.NoError(t, s.Write(store.UserKey("u2", store.FieldTodos), []int{}))

	keys, err := s.Keys("users/u1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"users/u1/budget", "users/u1/todos"}, keys)
}

func TestWriteAfterCloseIsPersistenceError(t *testing.T) {
	s, err := store.NewSQLiteStore(store.MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Write("k", 1)
	var perr *store.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "write", perr.Op)

	assert.Equal(t, 7, store.Read(s, "k", 7))
}

func TestReopenFileKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "theora.db")

	s, err := store.NewSQLiteStore(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Write("k", "v"))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "v", store.Read(s, "k", ""))
}

func TestEnvelopeTimestamp(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	env, err := store.NewEnvelope([]string{"x"}, at)
	require.NoError(t, err)

	assert.True(t, env.Timestamp().Equal(at))
	assert.True(t, store.Envelope{LastUpdated: "garbage"}.Timestamp().IsZero())
	assert.True(t, store.Envelope{}.Timestamp().IsZero())
	assert.False(t, store.Envelope{LastUpdated: "2024-01-02T03:04:05Z"}.Timestamp().IsZero())

	var out []string
	require.NoError(t, env.Decode(&out))
	assert.Equal(t, []string{"x"}, out)
	assert.Error(t, store.Envelope{}.Decode(&out))
}

func TestUserKeysAreScoped(t *testing.T) {
	keys := store.UserKeys("alice")
	assert.Len(t, keys, len(store.SyncedFields)+1)
	for _, k := range keys {
		assert.True(t, store.IsUserKey(k, "alice"), k)
		assert.False(t, store.IsUserKey(k, "bob"), k)
	}
}
