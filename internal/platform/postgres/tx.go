// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
)

// # Connection Contracts

// Querier is the statement surface shared by the pool and an open transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a [Querier] that can open transactions. [*pgxpool.Pool] satisfies it.
type DB interface {
	Querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// txKey carries the active [pgx.Tx] through a context.
type txKey struct{}

// Conn returns the transaction bound to ctx by [TxManager.WithinTx], or db
// when the call runs outside any transaction.
//
// Repositories call it on every statement so the same code path serves both
// standalone calls and calls enlisted in a scoped unit of work.
func Conn(ctx context.Context, db Querier) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}

// # Scoped Transactions

// TxManager runs a function inside one serializable transaction.
type TxManager struct {
	db      DB
	options pgx.TxOptions
}

// NewTxManager returns a manager that opens SERIALIZABLE read-write transactions.
func NewTxManager(db DB) *TxManager {
	return &TxManager{
		db:      db,
		options: pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite},
	}
}

/*
WithinTx executes fn in a transaction and commits only if fn returns nil.

Description: The transaction is rolled back when fn returns an error, when fn
panics (the panic is re-raised after rollback), or when ctx is cancelled before
commit. A call nested inside an active scope joins the outer transaction.

Parameters:
  - ctx: context.Context (cancellation aborts the unit)
  - fn: func(ctx) error (must use the ctx it receives)

Returns:
  - error: fn's error, or a classified begin/commit failure ([dberr.ErrTxConflict])
*/
func (manager *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	transaction, err := manager.db.BeginTx(ctx, manager.options)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin transaction: %w", dberr.Classify(err))
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			_ = transaction.Rollback(context.WithoutCancel(ctx))
			panic(recovered)
		}
		if err != nil {
			_ = transaction.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, transaction)); err != nil {
		return dberr.Classify(err)
	}

	// A cancelled caller must never observe a half-applied commit.
	if err = ctx.Err(); err != nil {
		return err
	}

	if err = transaction.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: failed to commit transaction: %w", dberr.Classify(err))
	}

	return nil
}
