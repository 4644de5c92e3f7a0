package dlq

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/keel"
	"github.com/xraph/keel/broker"
)

// Broker key layout. The index is a list of job keys in insertion order
// (tail-append, so listing returns oldest first); each record is a hash.
const (
	indexKey        = "dead_letter_queue"
	recordKeyPrefix = "dlq:"
)

// DefaultRetention is how long a dead letter record is kept.
const DefaultRetention = 7 * 24 * time.Hour

// Store manages dead letter records over a broker.
type Store struct {
	broker    broker.Broker
	retention time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithRetention sets the record TTL.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// NewStore creates a dead letter store over the given broker.
func NewStore(b broker.Broker, opts ...Option) *Store {
	s := &Store{broker: b, retention: DefaultRetention}
	for _, o := range opts {
		o(s)
	}
	return s
}

func recordKey(jobKey string) string { return recordKeyPrefix + jobKey }

// Push persists a record and appends its job key to the index. Pushing
// an already-present key overwrites the record without duplicating the
// index entry. Safe to call concurrently for different keys; for the
// same key, last writer wins.
func (s *Store) Push(ctx context.Context, r *Record) error {
	key := recordKey(r.JobKey)

	// Drop any previous record wholesale so stale detail fields from an
	// earlier failure don't survive the overwrite.
	if err := s.broker.Delete(ctx, key); err != nil {
		return fmt.Errorf("dlq: drop previous record %s: %w", r.JobKey, err)
	}
	if err := s.broker.HashSet(ctx, key, r.toMap()); err != nil {
		return fmt.Errorf("dlq: write record %s: %w", r.JobKey, err)
	}
	if _, err := s.broker.ListRemove(ctx, indexKey, r.JobKey); err != nil {
		return fmt.Errorf("dlq: dedupe index %s: %w", r.JobKey, err)
	}
	if err := s.broker.ListAppend(ctx, indexKey, r.JobKey); err != nil {
		return fmt.Errorf("dlq: index %s: %w", r.JobKey, err)
	}
	if err := s.broker.Expire(ctx, key, s.retention); err != nil {
		return fmt.Errorf("dlq: expire record %s: %w", r.JobKey, err)
	}
	return nil
}

// List returns up to limit records starting at offset, oldest first.
// A non-positive limit means no limit. Index entries whose record has
// expired are skipped, not errors — the index and record TTLs drift
// independently and the index entry is treated as already gone. Skipped
// entries can make a page come back short.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	keys, err := s.broker.ListRange(ctx, indexKey, int64(offset), stop)
	if err != nil {
		return nil, fmt.Errorf("dlq: list index: %w", err)
	}

	records := make([]*Record, 0, len(keys))
	for _, jobKey := range keys {
		fields, getErr := s.broker.HashGetAll(ctx, recordKey(jobKey))
		if getErr != nil {
			return nil, fmt.Errorf("dlq: read record %s: %w", jobKey, getErr)
		}
		if len(fields) == 0 {
			// Record expired under a live index entry.
			continue
		}
		records = append(records, recordFromMap(fields))
	}
	return records, nil
}

// Get retrieves the record for jobKey. Returns keel.ErrRecordNotFound
// if the key is not quarantined (or the record has expired).
func (s *Store) Get(ctx context.Context, jobKey string) (*Record, error) {
	fields, err := s.broker.HashGetAll(ctx, recordKey(jobKey))
	if err != nil {
		return nil, fmt.Errorf("dlq: get record %s: %w", jobKey, err)
	}
	if len(fields) == 0 {
		return nil, keel.ErrRecordNotFound
	}
	return recordFromMap(fields), nil
}

// Remove deletes both the index entry and the record for jobKey.
// Returns true if either existed.
func (s *Store) Remove(ctx context.Context, jobKey string) (bool, error) {
	fields, err := s.broker.HashGetAll(ctx, recordKey(jobKey))
	if err != nil {
		return false, fmt.Errorf("dlq: remove %s: %w", jobKey, err)
	}
	hadRecord := len(fields) > 0

	removed, err := s.broker.ListRemove(ctx, indexKey, jobKey)
	if err != nil {
		return false, fmt.Errorf("dlq: remove index %s: %w", jobKey, err)
	}
	if err := s.broker.Delete(ctx, recordKey(jobKey)); err != nil {
		return false, fmt.Errorf("dlq: remove record %s: %w", jobKey, err)
	}
	return hadRecord || removed > 0, nil
}

// Clear removes every record and the index, returning the number of
// index entries removed. The index is snapshotted first, so a
// concurrent List sees either the full set or the empty set.
func (s *Store) Clear(ctx context.Context) (int, error) {
	keys, err := s.broker.ListRange(ctx, indexKey, 0, -1)
	if err != nil {
		return 0, fmt.Errorf("dlq: clear snapshot: %w", err)
	}

	del := make([]string, 0, len(keys)+1)
	for _, jobKey := range keys {
		del = append(del, recordKey(jobKey))
	}
	del = append(del, indexKey)
	if err := s.broker.Delete(ctx, del...); err != nil {
		return 0, fmt.Errorf("dlq: clear: %w", err)
	}
	return len(keys), nil
}

// Count returns the number of index entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.broker.ListLength(ctx, indexKey)
	if err != nil {
		return 0, fmt.Errorf("dlq: count: %w", err)
	}
	return n, nil
}

// Stats is an aggregate view of the current records.
type Stats struct {
	Total       int64          `json:"total"`
	ByFunction  map[string]int `json:"by_function"`
	ByErrorKind map[string]int `json:"by_error_kind"`
}

// Stats scans all live records and aggregates them by function and
// error kind. O(n) in store size; the store is expected to stay small
// (operators alert well before it grows past a few hundred entries).
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.List(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:       total,
		ByFunction:  make(map[string]int),
		ByErrorKind: make(map[string]int),
	}
	for _, r := range records {
		fn := r.Function
		if fn == "" {
			fn = "unknown"
		}
		kind := r.ErrorKind
		if kind == "" {
			kind = "unknown"
		}
		stats.ByFunction[fn]++
		stats.ByErrorKind[kind]++
	}
	return stats, nil
}
