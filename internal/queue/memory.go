package queue

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MemoryDispatcher runs tasks on a bounded in-process worker pool.
type MemoryDispatcher struct {
	tasks   chan SeedTask
	handler Handler
	logger  *logrus.Logger
	group   errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// NewMemoryDispatcher creates a dispatcher holding up to buffer pending tasks.
func NewMemoryDispatcher(handler Handler, buffer int, logger *logrus.Logger) *MemoryDispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &MemoryDispatcher{
		tasks:   make(chan SeedTask, buffer),
		handler: handler,
		logger:  logger,
	}
}

// Start launches the workers. Handler errors are logged and dropped.
func (d *MemoryDispatcher) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		worker := i
		d.group.Go(func() error {
			for task := range d.tasks {
				if err := d.handler(ctx, task); err != nil {
					d.logger.WithFields(logrus.Fields{
						"worker": worker,
						"taskId": task.ID,
						"userId": task.UserID.Hex(),
						"goalId": task.GoalID.String(),
					}).WithError(err).Warn("goal start seeding failed")
				}
			}
			return nil
		})
	}
}

// Enqueue never blocks: a full buffer returns ErrQueueFull.
func (d *MemoryDispatcher) Enqueue(ctx context.Context, task SeedTask) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Stop refuses new tasks and waits for queued ones to finish.
func (d *MemoryDispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()
	_ = d.group.Wait()
}
