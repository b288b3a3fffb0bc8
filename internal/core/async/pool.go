package async

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work. Its ctx carries the per-task timeout.
type Task func(ctx context.Context) error

// Pool runs tasks with bounded concurrency. The first failure cancels the
// tasks still running and skips the ones not yet started.
type Pool struct {
	logger  *slog.Logger
	workers int
	timeout time.Duration
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithTaskTimeout bounds each task. Zero leaves tasks bounded only by the caller's ctx.
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPool(logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		logger:  logger,
		workers: 4,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int {
	return p.workers
}

// Run executes tasks and returns the first error. Cancellation is checked
// before each task starts.
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	started := 0
	for _, task := range tasks {
		task := task
		if gctx.Err() != nil {
			break
		}
		started++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tctx, cancel := gctx, context.CancelFunc(func() {})
			if p.timeout > 0 {
				tctx, cancel = context.WithTimeout(gctx, p.timeout)
			}
			defer cancel()
			return task(tctx)
		})
	}

	err := g.Wait()
	if err == nil && started < len(tasks) {
		// ctx ended before every task could be scheduled
		err = ctx.Err()
	}
	if err != nil {
		p.logger.Debug("async.pool.stopped", "tasks", len(tasks), "started", started, "error", err)
	}
	return err
}
