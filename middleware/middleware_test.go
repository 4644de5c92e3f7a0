package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xraph/keel/job"
	"github.com/xraph/keel/middleware"
)

func testJob() *job.Job {
	return &job.Job{Key: "send:1", Function: "send_message", Attempt: 1, MaxAttempts: 3}
}

// tag returns middleware that appends name on entry and exit.
func tag(order *[]string, name string) middleware.Middleware {
	return func(ctx context.Context, j *job.Job, next middleware.Handler) error {
		*order = append(*order, name+":before")
		err := next(ctx)
		*order = append(*order, name+":after")
		return err
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	chain := middleware.Chain(tag(&order, "outer"), tag(&order, "inner"))

	err := chain(context.Background(), testJob(), func(ctx context.Context) error {
		order = append(order, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("chain: %v", err)
	}

	want := []string{"outer:before", "inner:before", "task", "inner:after", "outer:after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestChain_Empty(t *testing.T) {
	chain := middleware.Chain()

	invoked := false
	err := chain(context.Background(), testJob(), func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if !invoked {
		t.Fatal("empty chain did not invoke the handler")
	}
}

func TestChain_PropagatesError(t *testing.T) {
	var order []string
	chain := middleware.Chain(tag(&order, "outer"))

	taskErr := errors.New("boom")
	err := chain(context.Background(), testJob(), func(ctx context.Context) error {
		return taskErr
	})
	if !errors.Is(err, taskErr) {
		t.Fatalf("chain error = %v, want the handler's error", err)
	}
}

func TestRecover_ConvertsPanicToError(t *testing.T) {
	mw := middleware.Recover(slog.New(slog.DiscardHandler))

	err := mw(context.Background(), testJob(), func(ctx context.Context) error {
		panic("nil map write")
	})
	if err == nil {
		t.Fatal("Recover returned nil for a panicking handler")
	}
	if !strings.Contains(err.Error(), "panic in job send:1") {
		t.Errorf("error = %q, want the panic converted with the job key", err)
	}
	if !strings.Contains(err.Error(), "nil map write") {
		t.Errorf("error = %q, want the panic value included", err)
	}
}

func TestRecover_PassesThroughSuccess(t *testing.T) {
	mw := middleware.Recover(slog.New(slog.DiscardHandler))

	err := mw(context.Background(), testJob(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Recover returned %v for a clean handler", err)
	}
}

func TestTimeout_CancelsSlowTask(t *testing.T) {
	mw := middleware.Timeout()

	j := testJob()
	j.Timeout = 10 * time.Millisecond
	err := mw(context.Background(), j, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want DeadlineExceeded", err)
	}
}

func TestTimeout_ZeroMeansUnbounded(t *testing.T) {
	mw := middleware.Timeout()

	err := mw(context.Background(), testJob(), func(ctx context.Context) error {
		if _, set := ctx.Deadline(); set {
			t.Error("deadline set on a job with zero Timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Timeout: %v", err)
	}
}
