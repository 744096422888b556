// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis connects the shared Redis instance that backs the
distributed attempt counters of the credential endpoints.

Nothing durable lives here: every key carries a TTL and losing the instance
only resets the quotas. Sessions and reset tokens stay in the primary store.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/yomira-auth/internal/platform/constants"
)

const (
	poolSize     = 10
	minIdleConns = 2

	dialTimeout = 3 * time.Second

	// Counter commands are tiny; a slow reply means Redis is unhealthy.
	commandTimeout = 500 * time.Millisecond
	pingTimeout    = 2 * time.Second
)

/*
NewClient parses redisURL, applies the pool settings and verifies the
server answers before returning.

Parameters:
  - context: stdctx.Context (bounds the startup ping)
  - redisURL: string (redis:// or rediss://)
  - logger: *slog.Logger

Returns:
  - *redis.Client: A connected client; callers own Close
  - error: Invalid URL or unreachable server
*/
func NewClient(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis_url_parse_failed: %w", err)
	}

	options.ClientName = constants.AppName
	options.PoolSize = poolSize
	options.MinIdleConns = minIdleConns
	options.DialTimeout = dialTimeout
	options.ReadTimeout = commandTimeout
	options.WriteTimeout = commandTimeout

	client := redis.NewClient(options)

	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
		slog.Bool("tls", options.TLSConfig != nil),
	)

	return client, nil
}

// Ping reports whether the server still answers.
func Ping(context stdctx.Context, client *redis.Client) error {
	context, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(context).Err(); err != nil {
		return fmt.Errorf("redis_ping_failed: %w", err)
	}
	return nil
}
