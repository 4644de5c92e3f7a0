package failure_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/xraph/keel/failure"
)

// declaredError carries its own kind.
type declaredError struct{ msg string }

func (e *declaredError) Error() string     { return e.msg }
func (e *declaredError) ErrorKind() string { return "rate_limited" }

// namedError is a plain custom error type.
type namedError struct{}

func (namedError) Error() string { return "named" }

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"self declared", &declaredError{msg: "429"}, "rate_limited"},
		{"self declared wrapped", fmt.Errorf("send: %w", &declaredError{msg: "429"}), "rate_limited"},
		{"deadline exceeded", context.DeadlineExceeded, "timeout"},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), "timeout"},
		{"net timeout", &net.OpError{Op: "dial", Net: "tcp", Err: timeoutError{}}, "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"named type", namedError{}, "namedError"},
		{"wrapped named type", fmt.Errorf("outer: %w", namedError{}), "namedError"},
		{"anonymous", errors.New("plain"), "error"},
		{"wrapped anonymous", fmt.Errorf("outer: %w", errors.New("plain")), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failure.Kind(tt.err); got != tt.want {
				t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

// timeoutError satisfies net.Error with Timeout() == true.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}
