package background

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// Background runs best-effort tasks outside of the request that scheduled
// them. Failures are logged, never returned to the caller.
type Background struct {
	log logrus.FieldLogger
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

// Go schedules fn. Tasks submitted after Shutdown started are dropped.
func (b *Background) Go(name string, fn func() error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.log.WithField("task", name).Warn("background task dropped: shutting down")
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithFields(logrus.Fields{
					"task":  name,
					"trace": string(debug.Stack()),
				}).Errorf("background task panicked: %v", rec)
			}
		}()

		if err := fn(); err != nil {
			b.log.WithField("task", name).Errorf("background task failed: %v", err)
		}
	}()
}

// Shutdown waits for the running tasks or for ctx to be done.
func (b *Background) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
