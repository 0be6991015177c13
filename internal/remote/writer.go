package remote

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/theora/internal/store"
)

// Writer pushes field updates to the remote store in the background, in the
// order they were enqueued. Failures are logged and dropped; the local store
// remains the source of truth until the next reconciliation.
type Writer struct {
	adapter *Adapter
	log     zerolog.Logger

	jobs chan writeJob
	done chan struct{}
	wg   sync.WaitGroup

	// ctx bounds every write; it is cancelled when a Close outlives its grace.
	ctx        context.Context
	cancel     context.CancelFunc
	jobTimeout time.Duration
	closeGrace time.Duration

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

type writeJob struct {
	userID string
	field  string
	env    store.Envelope

	// barrier, when set, is closed once every earlier job has finished.
	barrier chan struct{}
}

// DefaultQueueSize is the number of pending writes buffered before Enqueue
// blocks.
const DefaultQueueSize = 256

// Default bounds of a single write and of the drain in Close.
const (
	DefaultJobTimeout = 20 * time.Second
	DefaultCloseGrace = 5 * time.Second
)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithJobTimeout bounds each remote write, retries included.
func WithJobTimeout(d time.Duration) WriterOption {
	return func(w *Writer) { w.jobTimeout = d }
}

// WithCloseGrace sets how long Close lets queued writes run before
// cancelling them.
func WithCloseGrace(d time.Duration) WriterOption {
	return func(w *Writer) { w.closeGrace = d }
}

// NewWriter starts a writer goroutine for adapter.
func NewWriter(adapter *Adapter, log zerolog.Logger, opts ...WriterOption) *Writer {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		adapter:    adapter,
		log:        log.With().Str("component", "remote-writer").Logger(),
		jobs:       make(chan writeJob, DefaultQueueSize),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		jobTimeout: DefaultJobTimeout,
		closeGrace: DefaultCloseGrace,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Adapter returns the adapter the writer pushes through.
func (w *Writer) Adapter() *Adapter {
	return w.adapter
}

// Enqueue schedules env to be written as userID's field. It is a no-op when
// no remote store is configured or the writer is closed.
func (w *Writer) Enqueue(userID, field string, env store.Envelope) {
	if !w.adapter.Available() || userID == "" {
		return
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	w.jobs <- writeJob{userID: userID, field: field, env: env}
}

// Flush blocks until every write enqueued before the call has been attempted,
// or ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	barrier := make(chan struct{})

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil
	}
	select {
	case w.jobs <- writeJob{barrier: barrier}:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting writes, drains the queue and waits for the worker.
// Writes still running after the close grace are cancelled, so the rest of
// the queue fails fast instead of retrying.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.done)
		w.mu.Unlock()
	})

	expire := time.AfterFunc(w.closeGrace, w.cancel)
	w.wg.Wait()
	if !expire.Stop() {
		w.log.Warn().Dur("grace", w.closeGrace).Msg("remote writes cancelled on close")
	}
	w.cancel()
}

func (w *Writer) run() {
	defer w.wg.Done()

	for {
		select {
		case job := <-w.jobs:
			w.handle(job)
		case <-w.done:
			// Drain remaining jobs, preserving order, then exit.
			for {
				select {
				case job := <-w.jobs:
					w.handle(job)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) handle(job writeJob) {
	if job.barrier != nil {
		close(job.barrier)
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.jobTimeout)
	defer cancel()

	if err := w.adapter.SetField(ctx, job.userID, job.field, job.env); err != nil {
		w.log.Warn().Err(err).
			Str("user", job.userID).
			Str("field", job.field).
			Msg("remote write failed")
	}
}
