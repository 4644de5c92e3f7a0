package job

// Disposition classifies a task outcome.
type Disposition int

const (
	// DispositionOk means the task completed and produced a value.
	DispositionOk Disposition = iota
	// DispositionRetryable means the task failed transiently and may
	// be retried if budget remains.
	DispositionRetryable
	// DispositionFatal means the task failed permanently; retrying
	// cannot help (malformed input, business-rule rejection).
	DispositionFatal
)

// String returns the disposition name used in logs.
func (d Disposition) String() string {
	switch d {
	case DispositionOk:
		return "ok"
	case DispositionRetryable:
		return "retryable"
	case DispositionFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one task execution. Task bodies return
// exactly one of Ok, Retryable, or Fatal; the runner branches on the
// disposition instead of inspecting error types at runtime.
type Outcome[T any] struct {
	disposition Disposition
	value       T
	err         error
}

// Ok returns a successful outcome carrying the task's result value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{disposition: DispositionOk, value: v}
}

// Retryable returns a failed outcome eligible for retry (network
// timeouts, upstream 5xx, rate limiting).
func Retryable[T any](err error) Outcome[T] {
	return Outcome[T]{disposition: DispositionRetryable, err: err}
}

// Fatal returns a permanently failed outcome. The runner dead-letters it
// immediately regardless of remaining budget.
func Fatal[T any](err error) Outcome[T] {
	return Outcome[T]{disposition: DispositionFatal, err: err}
}

// Disposition returns the outcome's branch tag.
func (o Outcome[T]) Disposition() Disposition { return o.disposition }

// Value returns the result value. Only meaningful for Ok outcomes.
func (o Outcome[T]) Value() T { return o.value }

// Err returns the failure. Nil for Ok outcomes.
func (o Outcome[T]) Err() error { return o.err }
