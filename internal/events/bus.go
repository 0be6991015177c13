// Package events implements the synchronous named-topic bus that drives
// observer re-rendering.
package events

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/metrics"
)

// Handler receives the payload of an emitted event.
type Handler func(payload any)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process publish/subscribe hub. Emission is synchronous and
// runs handlers on the caller's goroutine in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[string][]subscription
	log    zerolog.Logger
}

// NewBus creates an empty bus that reports handler failures to log.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		topics: make(map[string][]subscription),
		log:    log,
	}
}

// Subscribe registers h for name and returns a function that removes it.
// Topics need not exist beforehand. The returned function is idempotent.
func (b *Bus) Subscribe(name string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.topics[name] = append(b.topics[name], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[name]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		// Copy so that in-flight emissions keep iterating their own snapshot.
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.topics, name)
		} else {
			b.topics[name] = next
		}
		return
	}
}

// Emit invokes every handler currently subscribed to name. A handler that
// panics is logged and skipped; the remaining handlers still run.
func (b *Bus) Emit(name string, payload any) {
	b.mu.RLock()
	subs := b.topics[name]
	b.mu.RUnlock()

	for _, s := range subs {
		b.invoke(name, s.handler, payload)
	}
}

// Subscribers returns how many handlers are registered for name.
func (b *Bus) Subscribers(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[name])
}

func (b *Bus) invoke(name string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanics.WithLabelValues(name).Inc()
			b.log.Error().
				Str("event", name).
				Interface("panic", r).
				Msg("event handler failed")
		}
	}()
	h(payload)
}
