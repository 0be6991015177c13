// Package notify runs the background task that periodically composes a
// notification for the signed-in user.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/ai"
	"github.com/nhle/theora/internal/metrics"
	"github.com/nhle/theora/internal/model"
	"github.com/nhle/theora/internal/state"
)

// RunState describes what the service is doing.
type RunState int

const (
	Idle RunState = iota
	Running
	Failed
)

// Status is the outcome of the most recent tick.
type Status struct {
	State     RunState
	LastRun   time.Time
	Error     error
	Generated int
}

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 60 * time.Second

// tickTimeout bounds a single generation.
const tickTimeout = 30 * time.Second

// Service composes notifications on a timer while notifications are enabled.
type Service struct {
	state    *state.Container
	composer *ai.Composer
	interval time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	running   bool
	status    Status
	triggerCh chan struct{}
	stopCh    chan struct{}
	done      chan struct{}
}

// New creates a stopped service.
func New(st *state.Container, composer *ai.Composer, interval time.Duration, log zerolog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		state:     st,
		composer:  composer,
		interval:  interval,
		log:       log.With().Str("component", "notify").Logger(),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the loop. The first tick runs immediately. Calling Start
// on a running service does nothing.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx, s.stopCh, s.done)
}

// Stop halts the loop and waits for an in-flight tick to finish. It is
// safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
}

// Trigger requests an immediate tick without blocking.
func (s *Service) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the outcome of the last tick.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// exited marks the run owning stop as finished so Start can run again.
func (s *Service) exited(stop <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.stopCh == stop {
		s.running = false
	}
}

func (s *Service) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.exited(stop)
			return
		case <-ticker.C:
			s.Tick(ctx)
		case <-s.triggerCh:
			s.Tick(ctx)
		}
	}
}

// Tick composes and stores one notification. It reports false when the
// tick was skipped because nobody is signed in or notifications are off.
func (s *Service) Tick(ctx context.Context) (model.Notification, bool) {
	if s.state.User() == nil || !s.state.Settings().Notifications {
		return model.Notification{}, false
	}

	s.setStatus(Running, nil, false)

	ctx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()

	message, typ, err := s.composer.Compose(ctx, s.state.Snapshot())
	if err != nil {
		s.log.Warn().Err(err).Msg("composing notification, using fallback")
	}

	n := s.state.AddNotification(message, typ)
	metrics.NotificationsGenerated.Inc()

	if err != nil {
		s.setStatus(Failed, err, true)
	} else {
		s.setStatus(Idle, nil, true)
	}
	return n, true
}

func (s *Service) setStatus(st RunState, err error, finished bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = st
	s.status.Error = err
	if finished {
		s.status.LastRun = time.Now()
		s.status.Generated++
	}
}
