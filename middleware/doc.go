// Package middleware provides composable middleware for task execution.
//
// A [Middleware] is a function that wraps a task invocation. Middleware
// are composed into a chain using [Chain] and applied around every
// execution attempt. They are applied right-to-left: the first
// middleware in the slice is the outermost wrapper.
//
//	// logging → recover → task
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs job key, attempt, duration, and outcome
//   - [Recover] — catches panics and converts them to errors
//   - [Timeout] — cancels the attempt context after the job's Timeout
//   - [Tracing] — wraps execution in an OpenTelemetry span
//   - [Metrics] — records per-attempt duration and outcome counters
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware
