package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Dispatcher runs submissions through a Handler on a fixed pool of worker
// goroutines fed by a bounded queue. Enqueue never blocks.
type Dispatcher struct {
	handler Handler
	log     zerolog.Logger

	queue chan Submission
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher starts workers goroutines consuming a queue of size slots.
func NewDispatcher(h Handler, size, workers int, log zerolog.Logger) *Dispatcher {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		handler: h,
		log:     log,
		queue:   make(chan Submission, size),
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Enqueue hands s to the workers. It returns false, after logging and
// counting the drop, when the queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(_ context.Context, s Submission) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(s, "closed")
		return false
	}
	select {
	case d.queue <- s:
		return true
	default:
		d.drop(s, "queue full")
		return false
	}
}

func (d *Dispatcher) drop(s Submission, reason string) {
	notifications.WithLabelValues(kindSubmission, outcomeDropped).Inc()
	d.log.Warn().Uint("lead_id", s.LeadID).Str("reason", reason).Msg("notification dropped")
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for s := range d.queue {
		d.run(s)
	}
}

func (d *Dispatcher) run(s Submission) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Uint("lead_id", s.LeadID).Msg("notification handler panicked")
		}
	}()
	// Errors are logged and counted by the handler.
	_ = d.handler.Handle(d.ctx, s)
}

// Close stops intake and waits for queued submissions to finish. If ctx
// expires first, in-flight work is cancelled and ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
