// Package dlq implements the dead letter store: an ordered index of
// failed-job keys plus a per-key record, with TTL-based retention and
// the management operations operators use to inspect and recover
// quarantined jobs (list, get, remove, clear, stats).
//
// Membership implies the job exhausted its retry budget. Records expire
// independently of the index; list operations tolerate the drift by
// skipping index entries whose record is gone.
package dlq
