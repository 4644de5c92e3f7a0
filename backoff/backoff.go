// Package backoff provides retry delay strategies. All strategies are
// pure and stateless, so they are safe for concurrent use and
// unit-testable in isolation.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Default delay bounds for retrying failed jobs.
const (
	// DefaultBase is the delay before the first retry.
	DefaultBase = 30 * time.Second
	// DefaultCap is the upper bound on any retry delay.
	DefaultCap = 10 * time.Minute
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before re-running a job that
	// failed on attempt n (1-indexed).
	Delay(attempt int) time.Duration
}

// Default returns the strategy used by the runner when none is
// configured: deterministic exponential doubling from 30s, capped at
// 10m. The resulting schedule is 30s, 60s, 120s, 240s, 480s, 600s, ...
func Default() Strategy {
	return NewExponential(DefaultBase, DefaultCap)
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay each attempt.
// Delay = min(Base * 2^(attempt-1), Cap).
type Exponential struct {
	Base time.Duration
	Cap  time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(base, capDelay time.Duration) *Exponential {
	return &Exponential{Base: base, Cap: capDelay}
}

// Delay returns Base * 2^(attempt-1), capped at Cap.
func (e *Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := e.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		// Doubling past the cap (or overflowing) can only land on
		// the cap, so stop early.
		if e.Cap > 0 && (d > e.Cap || d < 0) {
			return e.Cap
		}
	}
	if e.Cap > 0 && d > e.Cap {
		return e.Cap
	}
	return d
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (full jitter)
// ──────────────────────────────────────────────────

// ExponentialWithJitter applies full jitter to an exponential base.
// Delay = random value in [0, min(Base * 2^(attempt-1), Cap)].
// This prevents thundering herd when many retries happen simultaneously.
type ExponentialWithJitter struct {
	Base time.Duration
	Cap  time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(base, capDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Base: base, Cap: capDelay}
}

// Delay returns a random duration in [0, min(Base * 2^(attempt-1), Cap)].
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	ceiling := (&Exponential{Base: e.Base, Cap: e.Cap}).Delay(attempt)
	return time.Duration(rand.Float64() * float64(ceiling)) //nolint:gosec // jitter intentionally uses non-crypto rand
}
