package job

import "time"

// Job is the metadata for one logical unit of work.
//
// Key is opaque and caller-constructed; identical logical work must
// always produce the identical key (typically job type plus stable
// business identifiers, e.g. "send:42"). Colliding keys for distinct
// work is a caller bug — the deduplication ledger and the dead letter
// store are both keyed by it.
type Job struct {
	// Key uniquely identifies the logical unit of work.
	Key string

	// Function names the task being run, for logs and DLQ aggregation.
	Function string

	// Attempt is the 1-based number of the current execution attempt.
	Attempt int

	// MaxAttempts is the retry budget. The attempt where
	// Attempt == MaxAttempts is the terminal one.
	MaxAttempts int

	// Details carries job-specific fields that travel with every log
	// record and dead letter record (e.g. url, customer_id).
	Details map[string]string

	// Timeout bounds one execution attempt when non-zero, enforced by
	// the timeout middleware.
	Timeout time.Duration
}
