package failure

import (
	"context"
	"errors"
	"net"
	"reflect"
)

// Kinder lets task errors declare their own kind for aggregation.
// Any error in the chain implementing it takes precedence over the
// built-in classification.
type Kinder interface {
	ErrorKind() string
}

// Kind maps an error to a stable kind string used in log records and
// dead letter aggregation: a self-declared kind, "timeout", "canceled",
// the root error's type name, or "error" for anonymous errors.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var k Kinder
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	// Fall back to the root error's concrete type name.
	root := err
	for {
		u := errors.Unwrap(root)
		if u == nil {
			break
		}
		root = u
	}
	t := reflect.TypeOf(root)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil {
		if name := t.Name(); name != "" && name != "errorString" {
			return name
		}
	}
	return "error"
}
