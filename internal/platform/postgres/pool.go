// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres owns the PostgreSQL connection pool and the transaction
// manager the credential stores run inside.
//
// # Architecture
//
// Repositories never open connections themselves. They receive the pool (or
// the transaction bound to the request context, see [Conn]) and stay unaware
// of which one they are talking to.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxConnLifetime   = time.Hour
	maxConnIdleTime   = 10 * time.Minute
	healthCheckPeriod = time.Minute
	connectTimeout    = 5 * time.Second
	pingTimeout       = 2 * time.Second
)

// PoolConfig sizes the pool and bounds every statement it runs.
type PoolConfig struct {
	DSN string

	// ApplicationName tags connections in pg_stat_activity.
	ApplicationName string

	MaxConns int32
	MinConns int32

	// StatementTimeout is applied server-side to every session. Zero keeps
	// the server default.
	StatementTimeout time.Duration
}

/*
NewPool opens the pool and checks it can reach the server.

Parameters:
  - ctx: context.Context (bounds the initial connection)
  - config: PoolConfig
  - logger: *slog.Logger

Returns:
  - *pgxpool.Pool: A live pool; callers own Close
  - error: Invalid DSN or unreachable server
*/
func NewPool(ctx context.Context, config PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres_pool_parse_failed: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 && config.MinConns <= poolConfig.MaxConns {
		poolConfig.MinConns = config.MinConns
	}
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	// Runtime parameters travel in the startup packet, so no extra round trip per connection.
	runtime := poolConfig.ConnConfig.RuntimeParams
	if config.ApplicationName != "" {
		runtime["application_name"] = config.ApplicationName
	}
	if config.StatementTimeout > 0 {
		runtime["statement_timeout"] = strconv.FormatInt(config.StatementTimeout.Milliseconds(), 10)
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres_pool_open_failed: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
		slog.Duration("statement_timeout", config.StatementTimeout),
	)

	return pool, nil
}

// Ping reports whether the pool can still reach the server.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres_ping_failed: %w", err)
	}
	return nil
}
