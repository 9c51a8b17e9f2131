package store

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/snapgram/internal/logging"
	"github.com/google/uuid"
)

// tracker runs background work the caller does not wait for, but keeps every
// task observable: each gets a correlation id that appears in its start,
// completion and failure log lines, and Wait blocks until all settle.
type tracker struct {
	wg      sync.WaitGroup
	logger  logging.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newTracker(logger logging.Logger, timeout time.Duration) *tracker {
	return &tracker{logger: logger, timeout: timeout}
}

// Go starts fn detached from ctx's cancellation (values are kept) and
// returns the task's correlation id. After Close it runs nothing and returns
// an empty id.
func (t *tracker) Go(ctx context.Context, name string, fn func(ctx context.Context) error) string {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.logger.Debug(ctx, "task dropped after close", "task", name)
		return ""
	}
	t.wg.Add(1)
	t.mu.Unlock()

	id := uuid.NewString()
	log := t.logger.With("task", name, "task_id", id)

	go func() {
		defer t.wg.Done()

		tctx := context.WithoutCancel(ctx)
		if t.timeout > 0 {
			var cancel context.CancelFunc
			tctx, cancel = context.WithTimeout(tctx, t.timeout)
			defer cancel()
		}

		log.Debug(tctx, "task started")
		start := time.Now()
		if err := fn(tctx); err != nil {
			log.Error(tctx, "task failed", "error", err, "elapsed", time.Since(start))
			return
		}
		log.Info(tctx, "task completed", "elapsed", time.Since(start))
	}()
	return id
}

func (t *tracker) Wait() {
	t.wg.Wait()
}

// Close refuses new tasks and waits for the running ones.
func (t *tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}
