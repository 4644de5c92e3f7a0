// Package dedup implements the deduplication ledger: processed markers
// keyed by job key, recorded with a TTL after successful completion.
//
// The ledger deliberately fails open. If the broker is unreachable, a
// check reports "not processed" and a mark is dropped, so work keeps
// flowing at the cost of possible duplicate runs. Callers must therefore
// design task bodies to be idempotent — keel is at-least-once, not
// exactly-once.
package dedup

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/keel/broker"
)

// keyPrefix namespaces processed markers: processed:{jobKey}.
const keyPrefix = "processed:"

// markerValue is the stored value. Only key presence matters.
const markerValue = "1"

// DefaultTTL is how long a processed marker lives. Re-running the work
// after expiry is valid.
const DefaultTTL = time.Hour

// Ledger records and checks processed markers for job keys.
type Ledger struct {
	broker broker.Broker
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the Ledger.
type Option func(*Ledger)

// WithTTL sets the marker TTL.
func WithTTL(ttl time.Duration) Option {
	return func(l *Ledger) { l.ttl = ttl }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// NewLedger creates a ledger over the given broker.
func NewLedger(b broker.Broker, opts ...Option) *Ledger {
	l := &Ledger{
		broker: b,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// IsProcessed reports whether a live processed marker exists for jobKey.
// It has no side effects. A broker failure is logged and reported as
// "not processed" — fail open toward re-execution rather than blocking
// all work on an unreachable ledger.
func (l *Ledger) IsProcessed(ctx context.Context, jobKey string) bool {
	_, found, err := l.broker.Get(ctx, keyPrefix+jobKey)
	if err != nil {
		l.logger.Error("dedup check failed, proceeding with execution",
			slog.String("job_key", jobKey),
			slog.String("error", err.Error()),
		)
		return false
	}
	return found
}

// MarkProcessed records a processed marker for jobKey with the ledger's
// TTL. Idempotent: marking an already-marked key before expiry is a
// no-op. Broker failures are logged and swallowed; the job still counts
// as succeeded and may run again after the broker recovers.
func (l *Ledger) MarkProcessed(ctx context.Context, jobKey string) {
	if _, err := l.broker.SetIfAbsent(ctx, keyPrefix+jobKey, markerValue, l.ttl); err != nil {
		l.logger.Error("failed to mark job as processed",
			slog.String("job_key", jobKey),
			slog.String("error", err.Error()),
		)
	}
}

// TTL returns the marker TTL.
func (l *Ledger) TTL() time.Duration { return l.ttl }
