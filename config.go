package keel

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds configuration for a keel worker process.
type Config struct {
	// RedisAddr is the host:port of the broker's Redis instance.
	RedisAddr string `env:"KEEL_REDIS_ADDR" envDefault:"localhost:6379"`

	// RedisPassword is the Redis AUTH password, empty for none.
	RedisPassword string `env:"KEEL_REDIS_PASSWORD"`

	// DedupTTL is how long a processed marker lives. Work is allowed
	// to run again after it expires.
	DedupTTL time.Duration `env:"KEEL_DEDUP_TTL" envDefault:"1h"`

	// DLQRetention is how long a dead letter record is kept before
	// it expires.
	DLQRetention time.Duration `env:"KEEL_DLQ_RETENTION" envDefault:"168h"`

	// MaxAttempts is the default retry budget for submitted jobs.
	MaxAttempts int `env:"KEEL_MAX_ATTEMPTS" envDefault:"3"`

	// Concurrency is the maximum number of jobs processed concurrently.
	Concurrency int `env:"KEEL_CONCURRENCY" envDefault:"10"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `env:"KEEL_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RedisAddr:       "localhost:6379",
		DedupTTL:        time.Hour,
		DLQRetention:    7 * 24 * time.Hour,
		MaxAttempts:     3,
		Concurrency:     10,
		ShutdownTimeout: 30 * time.Second,
	}
}

// LoadConfig reads configuration from the environment, falling back to
// defaults for unset variables.
func LoadConfig() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("keel: parse config: %w", err)
	}
	return c, nil
}
