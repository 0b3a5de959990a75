// Package redis constructs the shared Redis client backing webhook delivery
// dedupe. A nil client is a valid configuration: single-process deployments
// run on the in-memory store instead.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"losbridge/internal/platform/config"
)

// New dials Redis from the given configuration, or returns nil when no URL
// is configured. The connection is verified with a ping before use.
func New(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
