package dedup_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/keel/broker"
	"github.com/xraph/keel/broker/memory"
	"github.com/xraph/keel/dedup"
)

func TestLedger_MarkThenCheck(t *testing.T) {
	l := dedup.NewLedger(memory.New())
	ctx := context.Background()

	if l.IsProcessed(ctx, "send:1") {
		t.Fatal("IsProcessed = true before marking")
	}

	l.MarkProcessed(ctx, "send:1")

	if !l.IsProcessed(ctx, "send:1") {
		t.Fatal("IsProcessed = false after marking")
	}
	if l.IsProcessed(ctx, "send:2") {
		t.Error("marking one key should not affect another")
	}
}

func TestLedger_MarkIsIdempotent(t *testing.T) {
	l := dedup.NewLedger(memory.New())
	ctx := context.Background()

	l.MarkProcessed(ctx, "send:1")
	l.MarkProcessed(ctx, "send:1")

	if !l.IsProcessed(ctx, "send:1") {
		t.Fatal("IsProcessed = false after double marking")
	}
}

func TestLedger_MarkerExpires(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := memory.New(memory.WithClock(func() time.Time { return now }))
	l := dedup.NewLedger(b, dedup.WithTTL(time.Hour))
	ctx := context.Background()

	l.MarkProcessed(ctx, "send:1")
	if !l.IsProcessed(ctx, "send:1") {
		t.Fatal("IsProcessed = false before expiry")
	}

	now = now.Add(time.Hour + time.Second)

	if l.IsProcessed(ctx, "send:1") {
		t.Fatal("IsProcessed = true after TTL expiry")
	}

	// Re-marking after expiry is valid: the work is allowed to run again.
	l.MarkProcessed(ctx, "send:1")
	if !l.IsProcessed(ctx, "send:1") {
		t.Fatal("IsProcessed = false after re-marking")
	}
}

// failingBroker errors on every operation, simulating an unreachable
// broker.
type failingBroker struct {
	broker.Broker
}

var errDown = errors.New("connection refused")

func (f *failingBroker) Get(context.Context, string) (string, bool, error) {
	return "", false, errDown
}

func (f *failingBroker) SetIfAbsent(context.Context, string, string, time.Duration) (bool, error) {
	return false, errDown
}

func TestLedger_FailsOpenWhenBrokerUnavailable(t *testing.T) {
	l := dedup.NewLedger(&failingBroker{}, dedup.WithLogger(slog.New(slog.DiscardHandler)))
	ctx := context.Background()

	// An unreachable ledger must report "not processed" rather than
	// blocking all work.
	if l.IsProcessed(ctx, "send:1") {
		t.Fatal("IsProcessed = true with unreachable broker, want fail-open false")
	}

	// Marking must swallow the failure.
	l.MarkProcessed(ctx, "send:1")
}
