// Package redis implements broker.Broker using Redis. Processed markers
// are plain keys with TTL, the dead letter index is a Redis List, and
// dead letter records are Redis Hashes.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	b := redisbroker.New(client)
//	if err := b.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/keel/broker"
)

// Compile-time interface check.
var _ broker.Broker = (*Broker)(nil)

// Broker implements broker.Broker backed by Redis.
type Broker struct {
	client goredis.Cmdable
}

// New creates a Redis-backed broker. The caller owns the Redis client
// lifecycle.
func New(client goredis.Cmdable) *Broker {
	return &Broker{client: client}
}

// Client returns the underlying Redis client.
func (b *Broker) Client() goredis.Cmdable { return b.client }

// SetIfAbsent writes value under key with a TTL only if the key is absent.
func (b *Broker) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := b.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("keel/redis: setnx %s: %w", key, err)
	}
	return ok, nil
}

// Get returns the value for key, reporting absence instead of an error.
func (b *Broker) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("keel/redis: get %s: %w", key, err)
	}
	return val, true, nil
}

// Delete removes the given keys.
func (b *Broker) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("keel/redis: del: %w", err)
	}
	return nil
}

// ListAppend appends value to the tail of the list at listKey.
func (b *Broker) ListAppend(ctx context.Context, listKey, value string) error {
	if err := b.client.RPush(ctx, listKey, value).Err(); err != nil {
		return fmt.Errorf("keel/redis: rpush %s: %w", listKey, err)
	}
	return nil
}

// ListRange returns list elements between start and stop inclusive.
func (b *Broker) ListRange(ctx context.Context, listKey string, start, stop int64) ([]string, error) {
	vals, err := b.client.LRange(ctx, listKey, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("keel/redis: lrange %s: %w", listKey, err)
	}
	return vals, nil
}

// ListLength returns the length of the list at listKey.
func (b *Broker) ListLength(ctx context.Context, listKey string) (int64, error) {
	n, err := b.client.LLen(ctx, listKey).Result()
	if err != nil {
		return 0, fmt.Errorf("keel/redis: llen %s: %w", listKey, err)
	}
	return n, nil
}

// ListRemove removes all occurrences of value from the list at listKey.
func (b *Broker) ListRemove(ctx context.Context, listKey, value string) (int64, error) {
	n, err := b.client.LRem(ctx, listKey, 0, value).Result()
	if err != nil {
		return 0, fmt.Errorf("keel/redis: lrem %s: %w", listKey, err)
	}
	return n, nil
}

// HashSet writes the given fields into the hash at hashKey.
func (b *Broker) HashSet(ctx context.Context, hashKey string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	// HSet wants a flat field/value sequence.
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := b.client.HSet(ctx, hashKey, args...).Err(); err != nil {
		return fmt.Errorf("keel/redis: hset %s: %w", hashKey, err)
	}
	return nil
}

// HashGetAll returns all fields of the hash at hashKey.
func (b *Broker) HashGetAll(ctx context.Context, hashKey string) (map[string]string, error) {
	vals, err := b.client.HGetAll(ctx, hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("keel/redis: hgetall %s: %w", hashKey, err)
	}
	return vals, nil
}

// Expire sets the TTL on an existing key.
func (b *Broker) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := b.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("keel/redis: expire %s: %w", key, err)
	}
	return nil
}

// Ping verifies the Redis connection is alive.
func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
