package timeseries

import (
	"context"
	"sync"
)

// writeJob is a unit of serialized write work; result is nil for
// fire-and-forget callers.
type writeJob struct {
	fn     func(context.Context) error
	result chan error
}

// writer serializes all sample-insert traffic through a single goroutine,
// so the many concurrent per-target probe loops never contend with each
// other for a write-path connection. Reads go straight through the pool
// and are fully concurrent.
type writer struct {
	jobs chan writeJob
	done chan struct{}
	wg   sync.WaitGroup
}

func newWriter(queueSize int) *writer {
	w := &writer{
		jobs: make(chan writeJob, queueSize),
		done: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *writer) run() {
	defer w.wg.Done()
	for {
		select {
		case job := <-w.jobs:
			err := job.fn(context.Background())
			if job.result != nil {
				job.result <- err
			}
		case <-w.done:
			// Drain anything already queued before exiting so in-flight
			// InsertSample callers never block forever on shutdown.
			for {
				select {
				case job := <-w.jobs:
					err := job.fn(context.Background())
					if job.result != nil {
						job.result <- err
					}
				default:
					return
				}
			}
		}
	}
}

// submit enqueues fn and blocks until it has run, returning its error.
func (w *writer) submit(ctx context.Context, fn func(context.Context) error) error {
	result := make(chan error, 1)
	job := writeJob{fn: fn, result: result}
	select {
	case w.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) close() {
	close(w.done)
	w.wg.Wait()
}
