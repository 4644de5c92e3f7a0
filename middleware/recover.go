package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/keel/job"
)

// Recover returns middleware that recovers from panics in the task body.
// Panics are converted to errors and logged with a stack trace; the
// runner then treats them like any other transient failure.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("task panicked",
					slog.String("job_key", j.Key),
					slog.String("function", j.Function),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in job %s: %v", j.Key, r)
			}
		}()
		return next(ctx)
	}
}
