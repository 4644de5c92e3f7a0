// Package worker provides the per-process execution context and a
// bounded pool that runs submitted jobs through the runner, requeueing
// retries after their backoff delay.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/keel"
	"github.com/xraph/keel/broker"
	redisbroker "github.com/xraph/keel/broker/redis"
	"github.com/xraph/keel/dedup"
	"github.com/xraph/keel/dlq"
	"github.com/xraph/keel/failure"
	"github.com/xraph/keel/middleware"
	"github.com/xraph/keel/runner"
)

// dialTimeout bounds the startup ping to the broker.
const dialTimeout = 5 * time.Second

// Context bundles the dependencies a worker process needs, constructed
// once at startup and passed explicitly into every operation. It
// replaces any implicitly shared connection or configuration state; the
// only shared mutable resource underneath is the broker itself.
type Context struct {
	Config   keel.Config
	Broker   broker.Broker
	Ledger   *dedup.Ledger
	DLQ      *dlq.Store
	Recorder *failure.Recorder
	Runner   *runner.Runner

	logger *slog.Logger
	client *goredis.Client
}

// NewContext dials Redis using cfg, verifies the connection, and wires
// the ledger, dead letter store, recorder, and runner over it. Call
// Close on shutdown to release the connection.
func NewContext(cfg keel.Config, logger *slog.Logger) (*Context, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // best-effort cleanup on failed startup
		return nil, fmt.Errorf("keel/worker: ping broker %s: %w: %w", cfg.RedisAddr, keel.ErrBrokerUnavailable, err)
	}

	wctx := NewContextWithBroker(cfg, redisbroker.New(client), logger)
	wctx.client = client
	wctx.logger.Info("worker context ready", slog.String("redis_addr", cfg.RedisAddr))
	return wctx, nil
}

// NewContextWithBroker wires a Context over an existing broker. Used by
// tests (with the memory broker) and by callers that manage their own
// Redis client.
func NewContextWithBroker(cfg keel.Config, b broker.Broker, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}

	ledger := dedup.NewLedger(b, dedup.WithTTL(cfg.DedupTTL), dedup.WithLogger(logger))
	store := dlq.NewStore(b, dlq.WithRetention(cfg.DLQRetention))
	recorder := failure.NewRecorder(store, failure.WithLogger(logger))
	run := runner.NewRunner(ledger, recorder,
		runner.WithLogger(logger),
		runner.WithMiddleware(
			middleware.Tracing(),
			middleware.Metrics(),
			middleware.Recover(logger),
			middleware.Timeout(),
		),
	)

	return &Context{
		Config:   cfg,
		Broker:   b,
		Ledger:   ledger,
		DLQ:      store,
		Recorder: recorder,
		Runner:   run,
		logger:   logger,
	}
}

// Logger returns the context's logger.
func (c *Context) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Close releases the broker connection. Safe to call when the context
// was built over an externally owned broker; it is then a no-op.
func (c *Context) Close() error {
	if c.client == nil {
		return nil
	}
	c.logger.Info("worker context closing")
	return c.client.Close()
}
