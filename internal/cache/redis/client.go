// Package redis provides the watcher's Redis-backed concerns: the
// distributed pass lock and the per-structure item-summary cache.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// connectTimeout bounds the initial connectivity probe so a misconfigured
// address fails startup quickly instead of hanging a poll loop behind it.
const connectTimeout = 5 * time.Second

// Config holds the connection settings for the shared Redis client. One
// client serves both the pass lock and the summary cache.
type Config struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

func (c Config) options() *redis.Options {
	opts := &redis.Options{
		Addr:       c.Addr,
		Password:   c.Password,
		DB:         c.DB,
		PoolSize:   c.PoolSize,
		MaxRetries: c.MaxRetries,
	}
	if c.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// Client owns the driver connection shared by the lock manager and the
// summary cache.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and verifies connectivity before returning. Locking
// is a correctness feature for multi-instance deployments, so an unreachable
// Redis is a startup error rather than something discovered mid-pass.
func New(ctx context.Context, cfg Config) (*Client, error) {
	rdb := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Close releases the driver connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying exposes the raw driver client to the lock manager and summary
// cache in this package.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
