// Package broker defines the narrow key-value interface keel requires
// from its remote store. Each subsystem (dedup ledger, dead letter
// store) builds its own key layout on top of these primitives; the
// broker itself knows nothing about jobs.
package broker

import (
	"context"
	"time"
)

// Broker is the contract for the shared key-value store. All operations
// are safe for concurrent use; coordination between workers happens
// exclusively through these broker-level primitives (set-if-absent,
// list append), never through in-process locks.
type Broker interface {
	// SetIfAbsent writes value under key with the given TTL only if the
	// key does not exist. Returns true if the write happened.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Get returns the value for key. The second return is false when
	// the key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes the given keys. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, keys ...string) error

	// ListAppend appends value to the tail of the list at listKey,
	// creating the list if needed.
	ListAppend(ctx context.Context, listKey, value string) error

	// ListRange returns the elements of the list at listKey between
	// start and stop inclusive. Negative indexes count from the tail
	// (-1 is the last element).
	ListRange(ctx context.Context, listKey string, start, stop int64) ([]string, error)

	// ListLength returns the length of the list at listKey. An absent
	// list has length zero.
	ListLength(ctx context.Context, listKey string) (int64, error)

	// ListRemove removes all occurrences of value from the list at
	// listKey and returns the number removed.
	ListRemove(ctx context.Context, listKey, value string) (int64, error)

	// HashSet writes the given fields into the hash at hashKey,
	// overwriting existing fields and leaving others untouched.
	HashSet(ctx context.Context, hashKey string, fields map[string]string) error

	// HashGetAll returns all fields of the hash at hashKey. An absent
	// hash yields an empty map and no error.
	HashGetAll(ctx context.Context, hashKey string) (map[string]string, error)

	// Expire sets the TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping verifies the broker connection is alive.
	Ping(ctx context.Context) error
}
