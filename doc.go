// Package keel is the reliable-execution core for asynchronous jobs:
// at-most-once completion marking per job key, bounded exponential retry
// for transient failures, and permanent quarantine of exhausted jobs in
// an inspectable dead-letter store.
//
// Keel is a library, not a service. It is deliberately agnostic to what a
// job does — it only governs how reliably it runs. The surrounding system
// supplies three things: a stable key per logical unit of work, a task
// body returning a tagged outcome, and a key-value broker (Redis in
// production, an in-memory broker in tests).
//
// # Quick Start
//
//	wctx, err := worker.NewContext(cfg, logger)
//	if err != nil { ... }
//	defer wctx.Close()
//
//	pool := worker.NewPool(wctx, worker.WithConcurrency(10))
//	_ = pool.Start(ctx)
//
//	res := worker.Submit(ctx, pool,
//	    &job.Job{Key: "send:42", Function: "send_message", MaxAttempts: 3},
//	    func(ctx context.Context, j *job.Job) job.Outcome[string] {
//	        if err := send(ctx); err != nil {
//	            return job.Retryable[string](err)
//	        }
//	        return job.Ok("sent")
//	    })
//
// # Architecture
//
// Each concern lives in its own package behind a narrow interface: broker
// (key-value adapter), dedup (processed-marker ledger), backoff (retry
// delay strategies), failure (attempt logging and dead-letter writes),
// dlq (dead-letter store and management surface), runner (the
// dedup-check → execute → mark/retry/dead-letter state machine), and
// worker (per-process context and a bounded pool).
//
// # Delivery Semantics
//
// Keel is at-least-once. The ledger is consulted before execution and
// written after success, so two concurrent first-time executions of the
// same key may both run; an unreachable ledger fails open toward
// re-execution. Task bodies must be safe to re-run.
package keel
