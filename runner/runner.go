// Package runner implements the retry orchestrator: each execution
// attempt runs dedup-check → execute → mark processed on success, or
// classify → schedule retry / dead-letter on failure.
//
// The runner owns the attempt-budget branching but is generic over the
// task's result type and agnostic to what the task does. Scheduling is
// cooperative: a retryable failure returns a Result carrying the
// backoff delay instead of blocking the worker; the caller requeues the
// job after at least that long.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/keel"
	"github.com/xraph/keel/backoff"
	"github.com/xraph/keel/dedup"
	"github.com/xraph/keel/failure"
	"github.com/xraph/keel/job"
	"github.com/xraph/keel/middleware"
)

// Status is the terminal state of one execution attempt.
type Status string

const (
	// StatusSkipped means the ledger already held a processed marker;
	// the task body was not invoked. Not an error.
	StatusSkipped Status = "skipped"
	// StatusCompleted means the task succeeded and the ledger was
	// marked.
	StatusCompleted Status = "completed"
	// StatusRetryScheduled means the attempt failed transiently with
	// budget remaining; the job should run again after RetryAfter.
	StatusRetryScheduled Status = "retry_scheduled"
	// StatusDeadLettered means the job was quarantined and the failure
	// propagated to the caller.
	StatusDeadLettered Status = "dead_lettered"
)

// Result is the outcome of one execution attempt.
type Result[T any] struct {
	// Status tells the caller what happened and what to do next.
	Status Status

	// Value is the task's result. Only set for StatusCompleted.
	Value T

	// RetryAfter is the minimum wait before re-running the job.
	// Only set for StatusRetryScheduled.
	RetryAfter time.Duration

	// Attempt is the attempt number this result belongs to.
	Attempt int
}

// Runner wraps task execution with deduplication, retry accounting,
// and dead-letter handling. Safe for concurrent use.
type Runner struct {
	ledger   *dedup.Ledger
	recorder *failure.Recorder
	backoff  backoff.Strategy
	mw       middleware.Middleware
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithBackoff sets the retry delay strategy.
func WithBackoff(s backoff.Strategy) Option {
	return func(r *Runner) { r.backoff = s }
}

// WithMiddleware sets the middleware chain applied around every attempt.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(r *Runner) { r.mw = middleware.Chain(mws...) }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a Runner. The default backoff is the deterministic
// exponential schedule (30s doubling, capped at 10m) and the default
// middleware chain is empty.
func NewRunner(ledger *dedup.Ledger, recorder *failure.Recorder, opts ...Option) *Runner {
	r := &Runner{
		ledger:   ledger,
		recorder: recorder,
		backoff:  backoff.Default(),
		mw:       middleware.Chain(),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes one attempt of j through the runner's middleware chain.
//
// Below-budget transient failures never surface to the caller: they are
// logged and returned as StatusRetryScheduled with a nil error. The
// terminal attempt's failure (budget exhausted, or a Fatal outcome) is
// durably recorded in the dead letter store and then returned as a hard
// error — the one case where failure is not absorbed.
//
// Run does not prevent concurrent executions of the same key: the
// ledger only blocks re-execution after a success has been marked. Two
// concurrent first-time runs may both execute; callers needing
// single-flight must add their own advisory lock.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func Run[T any](ctx context.Context, r *Runner, j *job.Job, task job.Task[T]) (Result[T], error) {
	if j.Attempt < 1 {
		j.Attempt = 1
	}
	res := Result[T]{Attempt: j.Attempt}

	if r.ledger.IsProcessed(ctx, j.Key) {
		r.logger.Info("job already processed, skipping",
			slog.String("job_key", j.Key),
			slog.String("function", j.Function),
		)
		res.Status = StatusSkipped
		return res, nil
	}

	// The terminal handler invokes the task body and captures its
	// tagged outcome; middleware sees only the error.
	var out job.Outcome[T]
	terminal := func(ctx context.Context) error {
		out = task(ctx, j)
		return out.Err()
	}
	err := r.mw(ctx, j, terminal)

	if err == nil {
		return complete(ctx, r, j, res, out.Value())
	}

	// A panic recovered by middleware reaches us as an error without
	// an outcome; treat it like any transient failure.
	disposition := out.Disposition()
	if out.Err() == nil {
		disposition = job.DispositionRetryable
	}

	if disposition == job.DispositionFatal {
		return deadLetter(ctx, r, j, res, err, keel.ErrFatalOutcome, j.Attempt)
	}
	if j.Attempt < j.MaxAttempts {
		return scheduleRetry(ctx, r, j, res, err)
	}
	return deadLetter(ctx, r, j, res, err, keel.ErrMaxAttemptsExceeded, j.MaxAttempts)
}

// complete marks the ledger and propagates the task's value unchanged.
func complete[T any](ctx context.Context, r *Runner, j *job.Job, res Result[T], value T) (Result[T], error) {
	r.ledger.MarkProcessed(ctx, j.Key)
	r.logger.Info("job completed",
		slog.String("job_key", j.Key),
		slog.String("function", j.Function),
		slog.Int("attempt", j.Attempt),
	)
	res.Status = StatusCompleted
	res.Value = value
	return res, nil
}

// scheduleRetry records the attempt at WARN and hands the backoff delay
// to the scheduling layer.
func scheduleRetry[T any](ctx context.Context, r *Runner, j *job.Job, res Result[T], err error) (Result[T], error) {
	r.recorder.RecordAttempt(ctx, j.Key, err, j.Attempt, j.MaxAttempts, j.Details)

	delay := r.backoff.Delay(j.Attempt)
	r.logger.Info("job scheduled for retry",
		slog.String("job_key", j.Key),
		slog.String("function", j.Function),
		slog.Int("attempt", j.Attempt),
		slog.Int("max_attempts", j.MaxAttempts),
		slog.Duration("delay", delay),
	)

	res.Status = StatusRetryScheduled
	res.RetryAfter = delay
	return res, nil
}

// deadLetter records the terminal attempt at ERROR, quarantines the
// job, and returns the failure to the caller.
func deadLetter[T any](ctx context.Context, r *Runner, j *job.Job, res Result[T], err, sentinel error, budget int) (Result[T], error) {
	// A fatal outcome consumes the remaining budget, so the recorder
	// sees this attempt as terminal either way.
	r.recorder.RecordAttempt(ctx, j.Key, err, j.Attempt, budget, j.Details)
	r.recorder.DeadLetter(ctx, j.Key, err, j.Details, j.Function)

	res.Status = StatusDeadLettered
	return res, fmt.Errorf("job %s: %w: %w", j.Key, sentinel, err)
}
