package middleware

import (
	"context"

	"github.com/xraph/keel/job"
)

// Timeout returns middleware that enforces a per-attempt deadline. If
// the job has a non-zero Timeout, a context.WithTimeout wraps the task
// call; when the deadline passes the context is cancelled and the task
// should return context.DeadlineExceeded.
func Timeout() Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		if j.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, j.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
