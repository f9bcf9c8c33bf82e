package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/logging"
)

// ErrClosed is returned by Submit after Shutdown has started.
var ErrClosed = errors.New("dispatcher closed")

// ErrQueueFull is returned by Submit when the task was dropped.
var ErrQueueFull = errors.New("dispatch queue full")

// Task is a best-effort unit of work. It receives its own context, detached
// from whatever request submitted it.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher runs tasks on a fixed pool of workers. Failures are logged and
// never retried.
type Dispatcher struct {
	queue   chan Task
	timeout time.Duration
	logger  logging.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts cfg.Workers workers reading from a queue of cfg.QueueSize.
func New(cfg config.DispatchConfig, logger logging.Logger) *Dispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		queue:   make(chan Task, cfg.QueueSize),
		timeout: cfg.TaskTimeout,
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Submit enqueues t without blocking. When the queue is full the task is
// dropped and logged.
func (d *Dispatcher) Submit(t Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("dispatcher closed, dropping task", "task", t.Name)
		return ErrClosed
	}

	select {
	case d.queue <- t:
		return nil
	default:
		d.logger.Warn("dispatch queue full, dropping task", "task", t.Name, "capacity", cap(d.queue))
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or for
// ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
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
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.run(t)
	}
}

func (d *Dispatcher) run(t Task) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := safeRun(ctx, t); err != nil {
		d.logger.Warn("side effect failed", "task", t.Name, "error", err, "duration", time.Since(start))
		return
	}
	d.logger.Debug("side effect completed", "task", t.Name, "duration", time.Since(start))
}

func safeRun(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.Run(ctx)
}
