package state_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/events"
	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/remote"
	"github.com/nhle/theora/internal/state"
	"github.com/nhle/theora/internal/store"
	"github.com/nhle/theora/internal/testutil"
)

var baseTime = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	c      *state.Container
	bus    *events.Bus
	local  *store.SQLiteStore
	docs   *remote.MemoryDocumentStore
	writer *remote.Writer
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newFixture(t *testing.T, opts ...state.Option) *fixture {
	t.Helper()

	f := &fixture{
		bus:   events.NewBus(zerolog.Nop()),
		local: testutil.NewTestStore(t),
		docs:  remote.NewMemoryDocumentStore(),
	}
	f.writer = remote.NewWriter(remote.NewAdapter(f.docs, zerolog.Nop()), zerolog.Nop())
	t.Cleanup(f.writer.Close)

	base := []state.Option{
		state.WithRemote(f.writer),
		state.WithClock(func() time.Time { return baseTime }),
		state.WithIDGenerator(sequentialIDs()),
	}
	f.c = state.New(f.bus, f.local, append(base, opts...)...)
	return f
}

// signedIn returns a fixture whose container has user u1 signed in.
func signedIn(t *testing.T, opts ...state.Option) *fixture {
	t.Helper()
	f := newFixture(t, opts...)
	require.NoError(t, f.c.SetUser(context.Background(), &model.Identity{ID: "u1", DisplayName: "Ada"}))
	return f
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.writer.Flush(ctx))
}

func putLocal(t *testing.T, s store.Store, uid, field string, data any, at time.Time) {
	t.Helper()
	env, err := store.NewEnvelope(data, at)
	require.NoError(t, err)
	require.NoError(t, s.Write(store.UserKey(uid, field), env))
}

func putRemote(t *testing.T, docs *remote.MemoryDocumentStore, uid, field string, data any, at time.Time) {
	t.Helper()
	env, err := store.NewEnvelope(data, at)
	require.NoError(t, err)
	require.NoError(t, remote.NewAdapter(docs, zerolog.Nop()).SetField(context.Background(), uid, field, env))
}

type recorded struct {
	name    string
	payload any
}

// recorder captures emissions of the named events in order.
type recorder struct {
	mu     sync.Mutex
	events []recorded
}

func record(bus *events.Bus, names ...string) *recorder {
	r := &recorder{}
	for _, name := range names {
		bus.Subscribe(name, func(payload any) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, recorded{name: name, payload: payload})
		})
	}
	return r
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.name
	}
	return out
}

func (r *recorder) last(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].name == name {
			return r.events[i].payload, true
		}
	}
	return nil, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var allTopics = []string{
	state.TodosChanged, state.EventsChanged, state.TransactionsChanged,
	state.BudgetChanged, state.SettingsChanged, state.AIMessagesChanged,
	state.CustomAIModesChanged, state.AIProviderChanged, state.AIResponseStyleChanged,
	state.NotificationsChanged, state.ChatSessionsChanged, state.CurrentChatSessionChanged,
	state.UserChanged, state.StateLoaded,
}
