package analysis

import (
	"context"
	"log/slog"
	"sync"
)

// task is one unit of background work with a name for logging.
type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Refresher runs best-effort background work on a fixed worker pool behind
// a bounded queue. Submission never blocks the caller: when the queue is
// full the task is dropped and logged, because background warming is an
// optimization, not a guarantee.
type Refresher struct {
	tasks  chan task
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRefresher starts workers goroutines draining a queue of the given
// capacity.
func NewRefresher(workers, queueSize int) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Refresher{
		tasks:  make(chan task, queueSize),
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}
	return r
}

// Submit enqueues a task without blocking. Returns false when the queue is
// full and the task was dropped.
func (r *Refresher) Submit(name string, fn func(ctx context.Context) error) bool {
	select {
	case r.tasks <- task{name: name, fn: fn}:
		return true
	default:
		slog.Warn("refresher queue full, dropping task", "task", name)
		return false
	}
}

// Stop cancels in-flight tasks and waits for the workers to exit. Queued
// but unstarted tasks are discarded. The task channel is left open so a
// late Submit stays safe; its task is simply never picked up.
func (r *Refresher) Stop() {
	r.once.Do(r.cancel)
	r.wg.Wait()
}

func (r *Refresher) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.tasks:
			r.run(ctx, t)
		}
	}
}

// run executes one task, converting panics into log entries so a bad task
// never takes a worker down.
func (r *Refresher) run(ctx context.Context, t task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in background task", "task", t.name, "error", rec)
		}
	}()
	if err := t.fn(ctx); err != nil {
		slog.Warn("background task failed", "task", t.name, "error", err)
	}
}
