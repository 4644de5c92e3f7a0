// Package memory provides a fully in-memory broker.Broker. Safe for
// concurrent access. Intended for unit testing and development; TTLs are
// honored against an injectable clock so expiry can be tested without
// sleeping.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/keel/broker"
)

// Compile-time interface check.
var _ broker.Broker = (*Broker)(nil)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Broker is an in-memory implementation of broker.Broker.
type Broker struct {
	mu     sync.RWMutex
	values map[string]entry
	lists  map[string][]string
	hashes map[string]map[string]string
	// expiries tracks TTLs for lists and hashes (value keys carry their
	// expiry inline).
	expiries map[string]time.Time

	now func() time.Time
}

// Option configures the Broker.
type Option func(*Broker)

// WithClock sets the time source used for TTL checks. Tests use this to
// advance time deterministically.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// New returns a new empty Broker.
func New(opts ...Option) *Broker {
	b := &Broker{
		values:   make(map[string]entry),
		lists:    make(map[string][]string),
		hashes:   make(map[string]map[string]string),
		expiries: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// SetIfAbsent writes value under key with a TTL only if the key is absent.
func (b *Broker) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.values[key]; ok && !b.expired(e.expiresAt) {
		return false, nil
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = b.now().Add(ttl)
	}
	b.values[key] = e
	return true, nil
}

// Get returns the value for key, reporting absence instead of an error.
func (b *Broker) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.values[key]
	if !ok || b.expired(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Delete removes the given keys across all kinds.
func (b *Broker) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range keys {
		delete(b.values, k)
		delete(b.lists, k)
		delete(b.hashes, k)
		delete(b.expiries, k)
	}
	return nil
}

// ListAppend appends value to the tail of the list at listKey.
func (b *Broker) ListAppend(_ context.Context, listKey, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dropIfExpired(listKey)
	b.lists[listKey] = append(b.lists[listKey], value)
	return nil
}

// ListRange returns list elements between start and stop inclusive,
// with Redis-style negative indexes.
func (b *Broker) ListRange(_ context.Context, listKey string, start, stop int64) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.listExpired(listKey) {
		return nil, nil
	}
	list := b.lists[listKey]
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

// ListLength returns the length of the list at listKey.
func (b *Broker) ListLength(_ context.Context, listKey string) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.listExpired(listKey) {
		return 0, nil
	}
	return int64(len(b.lists[listKey])), nil
}

// ListRemove removes all occurrences of value from the list at listKey.
func (b *Broker) ListRemove(_ context.Context, listKey, value string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dropIfExpired(listKey)
	list := b.lists[listKey]
	kept := list[:0]
	var removed int64
	for _, v := range list {
		if v == value {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		delete(b.lists, listKey)
	} else {
		b.lists[listKey] = kept
	}
	return removed, nil
}

// HashSet writes the given fields into the hash at hashKey.
func (b *Broker) HashSet(_ context.Context, hashKey string, fields map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dropIfExpired(hashKey)
	h, ok := b.hashes[hashKey]
	if !ok {
		h = make(map[string]string, len(fields))
		b.hashes[hashKey] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

// HashGetAll returns a copy of all fields of the hash at hashKey.
func (b *Broker) HashGetAll(_ context.Context, hashKey string) (map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if exp, ok := b.expiries[hashKey]; ok && b.expired(exp) {
		return map[string]string{}, nil
	}
	h := b.hashes[hashKey]
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

// Expire sets the TTL on an existing key of any kind.
func (b *Broker) Expire(_ context.Context, key string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	deadline := b.now().Add(ttl)
	if e, ok := b.values[key]; ok {
		e.expiresAt = deadline
		b.values[key] = e
		return nil
	}
	if _, ok := b.lists[key]; ok {
		b.expiries[key] = deadline
		return nil
	}
	if _, ok := b.hashes[key]; ok {
		b.expiries[key] = deadline
		return nil
	}
	return nil
}

// Ping always succeeds for the memory broker.
func (b *Broker) Ping(_ context.Context) error { return nil }

// expired reports whether deadline has passed. A zero deadline never
// expires.
func (b *Broker) expired(deadline time.Time) bool {
	return !deadline.IsZero() && !b.now().Before(deadline)
}

func (b *Broker) listExpired(key string) bool {
	exp, ok := b.expiries[key]
	return ok && b.expired(exp)
}

// dropIfExpired lazily removes an expired list or hash before a write,
// mirroring Redis semantics. Caller must hold the write lock.
func (b *Broker) dropIfExpired(key string) {
	if exp, ok := b.expiries[key]; ok && b.expired(exp) {
		delete(b.lists, key)
		delete(b.hashes, key)
		delete(b.expiries, key)
	}
}
