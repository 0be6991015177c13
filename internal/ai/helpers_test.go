package ai_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/ai"
	"github.com/nhle/theora/internal/events"
	"github.com/nhle/theora/internal/state"
	"github.com/nhle/theora/internal/testutil"
)

type call struct {
	Prompt string
	Opts   ai.Options
}

// fakeGenerator replays scripted replies and records every request.
type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	before  func()
	calls   []call
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, opts ai.Options) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{Prompt: prompt, Opts: opts})
	before := f.before
	f.mu.Unlock()

	if before != nil {
		before()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "ok", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeGenerator) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newContainer(t *testing.T) *state.Container {
	t.Helper()
	return state.New(events.NewBus(zerolog.Nop()), testutil.NewTestStore(t))
}
