package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/ai"
	"github.com/nhle/theora/internal/model"
)

func first(int) int { return 0 }

func TestComposer_PicksTopicWithData(t *testing.T) {
	st := newContainer(t)
	_, err := st.AddTodo(model.Todo{Title: "Read chapter 4", Priority: model.PriorityHigh})
	require.NoError(t, err)

	gen := &fakeGenerator{replies: []string{"Chapter 4 won't read itself."}}
	c := ai.NewComposer(gen, "₦", zerolog.Nop()).WithPicker(first)

	msg, typ, err := c.Compose(context.Background(), st.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, "Chapter 4 won't read itself.", msg)
	assert.Equal(t, model.NotificationTodo, typ)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, `"Read chapter 4"`)
	assert.Equal(t, 80, calls[0].Opts.MaxTokens)
}

func TestComposer_GeneralWhenNothingElse(t *testing.T) {
	st := newContainer(t)
	require.NoError(t, st.SetBudget(model.BudgetPatch{Limit: ptr(decimal.Zero)}))

	c := ai.NewComposer(&fakeGenerator{}, "₦", zerolog.Nop()).WithPicker(first)
	_, typ, err := c.Compose(context.Background(), st.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, model.NotificationGeneral, typ)
}

func TestComposer_FallbackOnFailure(t *testing.T) {
	st := newContainer(t)
	c := ai.NewComposer(&fakeGenerator{err: errors.New("down")}, "₦", zerolog.Nop()).WithPicker(first)

	msg, typ, err := c.Compose(context.Background(), st.Snapshot())
	assert.Error(t, err)
	assert.Equal(t, ai.FallbackNotification, msg)
	assert.Equal(t, model.NotificationGeneral, typ)
}

func ptr[T any](v T) *T { return &v }
