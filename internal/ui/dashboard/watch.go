package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/theora/internal/events"
	"github.com/nhle/theora/internal/state"
)

// StateChangedMsg is delivered after the container emits Topic.
type StateChangedMsg struct {
	Topic string
}

// watcher forwards bus events into the Bubble Tea runtime. Handlers never
// block the emitter: when the buffer is full the event is dropped, which is
// harmless since every message triggers a full refresh.
type watcher struct {
	ch     chan string
	unsubs []func()
}

func watch(bus *events.Bus) *watcher {
	w := &watcher{ch: make(chan string, 64)}
	for _, topic := range state.Topics {
		w.unsubs = append(w.unsubs, bus.Subscribe(topic, func(any) {
			select {
			case w.ch <- topic:
			default:
			}
		}))
	}
	return w
}

// next returns a command that waits for the next event.
func (w *watcher) next() tea.Cmd {
	return func() tea.Msg {
		return StateChangedMsg{Topic: <-w.ch}
	}
}

func (w *watcher) stop() {
	for _, unsub := range w.unsubs {
		unsub()
	}
}
