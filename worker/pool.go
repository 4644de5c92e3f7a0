package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/xraph/keel/job"
	"github.com/xraph/keel/runner"
)

// ErrStopped is returned by promises whose job was abandoned because
// the pool shut down before the attempt (or a pending retry) could run.
// The attempt's outcome is undefined at that point — an accepted
// at-least-once tradeoff; task bodies must be safe to re-run.
var ErrStopped = errors.New("keel/worker: pool stopped")

// pending is one type-erased queued execution. exec runs a single
// attempt and reports whether the job wants another run and after how
// long; fail resolves the caller's promise when the job is abandoned.
type pending struct {
	j    *job.Job
	exec func(ctx context.Context) (retryAfter time.Duration, again bool)
	fail func(err error)
}

// Pool runs submitted jobs on a bounded set of goroutines. Retryable
// failures are requeued after their backoff delay (the delay is a
// minimum, not an exact wake time).
type Pool struct {
	wctx        *Context
	concurrency int64
	queue       chan *pending
	sem         *semaphore.Weighted
	workerID    string
	logger      *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithConcurrency sets the maximum number of concurrently executing
// jobs.
func WithConcurrency(n int) Option {
	return func(p *Pool) { p.concurrency = int64(n) }
}

// WithQueueDepth sets the submission buffer size.
func WithQueueDepth(n int) Option {
	return func(p *Pool) { p.queue = make(chan *pending, n) }
}

// NewPool creates a worker pool over the given context. Concurrency
// defaults to the context's configured value.
func NewPool(wctx *Context, opts ...Option) *Pool {
	p := &Pool{
		wctx:        wctx,
		concurrency: int64(wctx.Config.Concurrency),
		queue:       make(chan *pending, 1024),
		workerID:    uuid.NewString(),
		logger:      wctx.Logger(),
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	p.sem = semaphore.NewWeighted(p.concurrency)
	return p
}

// WorkerID returns the pool's unique worker identifier.
func (p *Pool) WorkerID() string { return p.workerID }

// Start launches the dispatch loop. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID),
		slog.Int64("concurrency", p.concurrency),
	)

	p.wg.Add(1)
	go p.dispatchLoop()
	return nil
}

// Stop signals the pool to stop and waits for in-flight attempts to
// finish. If the context has a deadline, Stop returns when it expires;
// retries still pending at that point are abandoned and their promises
// resolved with ErrStopped.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.String("worker_id", p.workerID))
	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// enqueue's stop check races with the close above: a pending can
		// land on the queue after the dispatch loop drained it. Sweep once
		// more now that every goroutine has settled.
		p.drain()
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out")
		return ctx.Err()
	}
}

// dispatchLoop hands queued executions to bounded goroutines.
func (p *Pool) dispatchLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			p.drain()
			return
		case t := <-p.queue:
			if err := p.sem.Acquire(context.Background(), 1); err != nil {
				t.fail(err)
				continue
			}
			p.wg.Add(1)
			go func(t *pending) {
				defer p.wg.Done()
				defer p.sem.Release(1)
				p.execute(t)
			}(t)
		}
	}
}

// execute runs one attempt and requeues the job if it wants a retry.
func (p *Pool) execute(t *pending) {
	retryAfter, again := t.exec(context.Background())
	if !again {
		return
	}

	t.j.Attempt++
	timer := time.NewTimer(retryAfter)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer timer.Stop()
		select {
		case <-p.stopCh:
			t.fail(ErrStopped)
		case <-timer.C:
			p.enqueue(t)
		}
	}()
}

// enqueue puts a pending execution on the queue, failing it if the pool
// has stopped. The stop check runs first: once stopCh is closed nothing
// drains the queue anymore, and a select would still pick the buffered
// send at random.
func (p *Pool) enqueue(t *pending) {
	select {
	case <-p.stopCh:
		t.fail(ErrStopped)
		return
	default:
	}
	select {
	case <-p.stopCh:
		t.fail(ErrStopped)
	case p.queue <- t:
	}
}

// drain fails everything still sitting in the queue at shutdown.
func (p *Pool) drain() {
	for {
		select {
		case t := <-p.queue:
			t.fail(ErrStopped)
		default:
			return
		}
	}
}

// Promise is the pending terminal result of a submitted job.
type Promise[T any] struct {
	done chan struct{}
	once sync.Once
	res  runner.Result[T]
	err  error
}

// Wait blocks until the job reaches a terminal state (completed,
// skipped, or dead-lettered) or ctx is done. Retries do not resolve the
// promise; only the final outcome does.
func (pr *Promise[T]) Wait(ctx context.Context) (runner.Result[T], error) {
	select {
	case <-ctx.Done():
		return runner.Result[T]{}, ctx.Err()
	case <-pr.done:
		return pr.res, pr.err
	}
}

func (pr *Promise[T]) resolve(res runner.Result[T], err error) {
	pr.once.Do(func() {
		pr.res = res
		pr.err = err
		close(pr.done)
	})
}

// Submit queues one job for execution and returns a promise for its
// terminal result. A zero MaxAttempts falls back to the context's
// configured default.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func Submit[T any](ctx context.Context, p *Pool, j *job.Job, task job.Task[T]) *Promise[T] {
	pr := &Promise[T]{done: make(chan struct{})}

	if j.MaxAttempts <= 0 {
		j.MaxAttempts = p.wctx.Config.MaxAttempts
	}

	t := &pending{j: j}
	t.fail = func(err error) {
		pr.resolve(runner.Result[T]{Attempt: j.Attempt}, err)
	}
	t.exec = func(execCtx context.Context) (time.Duration, bool) {
		res, err := runner.Run(execCtx, p.wctx.Runner, j, task)
		if res.Status == runner.StatusRetryScheduled {
			return res.RetryAfter, true
		}
		pr.resolve(res, err)
		return 0, false
	}

	select {
	case <-p.stopCh:
		t.fail(ErrStopped)
		return pr
	default:
	}
	select {
	case <-ctx.Done():
		t.fail(ctx.Err())
	case <-p.stopCh:
		t.fail(ErrStopped)
	case p.queue <- t:
	}
	return pr
}
