// Package failure records job failures: structured attempt logging and
// dead-letter persistence, decoupled from the runner so the same
// handling serves every job type.
//
// Nothing in this package returns an error. Failure handling must never
// itself cause a job to fail, so log-sink and broker problems are
// swallowed and surfaced only through internal metrics.
package failure

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/keel/dlq"
)

// meterName is the instrumentation scope name for keel metrics.
const meterName = "github.com/xraph/keel"

// Attempt statuses attached to log records.
const (
	statusRetry      = "retry"
	statusDeadLetter = "dead_letter"
)

// DeadLetterer is the slice of the dead letter store the recorder needs.
type DeadLetterer interface {
	Push(ctx context.Context, r *dlq.Record) error
}

// Recorder logs failed attempts and quarantines terminally failed jobs.
type Recorder struct {
	store  DeadLetterer
	logger *slog.Logger

	// Internal failure counters. Noop instruments when no global
	// MeterProvider is configured.
	sinkErrors  metric.Int64Counter
	deadLetters metric.Int64Counter
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// NewRecorder creates a Recorder writing dead letters to store.
func NewRecorder(store DeadLetterer, opts ...Option) *Recorder {
	r := &Recorder{
		store:  store,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}

	meter := otel.Meter(meterName)
	r.sinkErrors, _ = meter.Int64Counter( //nolint:errcheck // noop fallback guaranteed by OTel API contract
		"keel.recorder.sink_errors",
		metric.WithDescription("Failure-handling errors swallowed by the recorder"),
		metric.WithUnit("{error}"),
	)
	r.deadLetters, _ = meter.Int64Counter( //nolint:errcheck // noop fallback guaranteed by OTel API contract
		"keel.recorder.dead_letters",
		metric.WithDescription("Jobs quarantined in the dead letter store"),
		metric.WithUnit("{job}"),
	)
	return r
}

// RecordAttempt logs one failed attempt: WARN while budget remains,
// ERROR on the terminal attempt. It never fails; a panicking log sink
// is recovered and counted.
func (r *Recorder) RecordAttempt(ctx context.Context, jobKey string, err error, attempt, maxAttempts int, details map[string]string) {
	defer r.recoverSink(ctx)

	status := statusRetry
	level := slog.LevelWarn
	msg := "job failed, will retry"
	if attempt >= maxAttempts {
		status = statusDeadLetter
		level = slog.LevelError
		msg = "job failed on terminal attempt, moving to dead letter queue"
	}

	attrs := []slog.Attr{
		slog.String("job_key", jobKey),
		slog.String("error_kind", Kind(err)),
		slog.String("error_message", err.Error()),
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", maxAttempts),
		slog.String("status", status),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339Nano)),
	}
	for k, v := range details {
		attrs = append(attrs, slog.String(k, v))
	}
	r.logger.LogAttrs(ctx, level, msg, attrs...)
}

// DeadLetter persists a dead letter record for jobKey. Store failures
// are logged, counted, and swallowed — by this point the terminal
// failure is already being propagated to the caller, and a broken
// broker must not mask it.
func (r *Recorder) DeadLetter(ctx context.Context, jobKey string, err error, details map[string]string, function string) {
	defer r.recoverSink(ctx)

	rec := &dlq.Record{
		JobKey:       jobKey,
		ErrorKind:    Kind(err),
		ErrorMessage: err.Error(),
		Function:     function,
		FirstSeenAt:  time.Now().UTC(),
		Details:      details,
	}

	if pushErr := r.store.Push(ctx, rec); pushErr != nil {
		r.sinkErrors.Add(ctx, 1)
		r.logger.Error("failed to write dead letter record",
			slog.String("job_key", jobKey),
			slog.String("error", pushErr.Error()),
		)
		return
	}

	r.deadLetters.Add(ctx, 1)
	r.logger.Error("job moved to dead letter queue",
		slog.String("job_key", jobKey),
		slog.String("error_kind", rec.ErrorKind),
		slog.String("error_message", rec.ErrorMessage),
		slog.String("function", function),
	)
}

// recoverSink absorbs panics from the log sink and counts them.
func (r *Recorder) recoverSink(ctx context.Context) {
	if rec := recover(); rec != nil {
		r.sinkErrors.Add(ctx, 1)
	}
}
