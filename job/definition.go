package job

import "context"

// Task is a typed task body. It receives the job metadata (key, attempt
// counters, details) and returns a tagged outcome.
type Task[T any] func(ctx context.Context, j *Job) Outcome[T]

// Definition binds a function name to a typed task body and its retry
// budget, so callers can register work once and submit it by key.
type Definition[T any] struct {
	// Function is the task name recorded in logs and DLQ entries.
	Function string

	// MaxAttempts is the retry budget for jobs of this definition.
	// Zero means use the worker's configured default.
	MaxAttempts int

	// Handler is the task body.
	Handler Task[T]
}

// NewJob builds the Job metadata for one submission of this definition.
func (d *Definition[T]) NewJob(key string, details map[string]string) *Job {
	return &Job{
		Key:         key,
		Function:    d.Function,
		MaxAttempts: d.MaxAttempts,
		Details:     details,
	}
}
