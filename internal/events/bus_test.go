package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitRunsHandlersInSubscriptionOrder(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var got []string
	b.Subscribe("todosChanged", func(any) { got = append(got, "first") })
	b.Subscribe("todosChanged", func(any) { got = append(got, "second") })
	b.Subscribe("other", func(any) { got = append(got, "other") })

	b.Emit("todosChanged", nil)

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestEmitPassesPayload(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var got any
	b.Subscribe("budgetChanged", func(p any) { got = p })
	b.Emit("budgetChanged", 42)

	assert.Equal(t, 42, got)
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := NewBus(zerolog.Nop())

	ran := 0
	b.Subscribe("x", func(any) { ran++ })
	b.Subscribe("x", func(any) { panic("render failed") })
	b.Subscribe("x", func(any) { ran++ })

	require.NotPanics(t, func() { b.Emit("x", nil) })
	assert.Equal(t, 2, ran)
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus(zerolog.Nop())

	calls := 0
	unsub := b.Subscribe("x", func(any) { calls++ })
	b.Emit("x", nil)
	unsub()
	unsub()
	b.Emit("x", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Subscribers("x"))
}

func TestUnsubscribeDuringEmit(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var calls []string
	var unsubSecond func()
	b.Subscribe("x", func(any) {
		calls = append(calls, "first")
		unsubSecond()
	})
	unsubSecond = b.Subscribe("x", func(any) { calls = append(calls, "second") })

	b.Emit("x", nil)
	b.Emit("x", nil)

	assert.Equal(t, []string{"first", "second", "first"}, calls)
}

func TestEmitWithoutSubscribers(t *testing.T) {
	b := NewBus(zerolog.Nop())
	assert.NotPanics(t, func() { b.Emit("neverSubscribed", "payload") })
}
