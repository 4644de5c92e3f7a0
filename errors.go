package keel

import "errors"

var (
	// Broker errors.
	ErrBrokerUnavailable = errors.New("keel: broker unavailable")

	// Not found errors.
	ErrRecordNotFound = errors.New("keel: dead letter record not found")

	// State errors.
	ErrMaxAttemptsExceeded = errors.New("keel: max attempts exceeded")
	ErrFatalOutcome        = errors.New("keel: fatal task outcome")
)
