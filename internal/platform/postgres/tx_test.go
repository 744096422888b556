// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/postgres"
)

var serializable = pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

/*
TestWithinTx_Commit runs statements through the bound transaction and commits.
*/
func TestWithinTx_Commit(t *testing.T) {
	mock := newMock(t)
	manager := postgres.NewTxManager(mock)

	mock.ExpectBeginTx(serializable)
	mock.ExpectExec("DELETE FROM users.session").
		WithArgs("acc-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	err := manager.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := postgres.Conn(ctx, mock).Exec(ctx, "DELETE FROM users.session WHERE accountid = $1", "acc-1")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestWithinTx_RollbackOnError never commits when the unit fails.
*/
func TestWithinTx_RollbackOnError(t *testing.T) {
	mock := newMock(t)
	manager := postgres.NewTxManager(mock)
	failure := errors.New("boom")

	mock.ExpectBeginTx(serializable)
	mock.ExpectRollback()

	err := manager.WithinTx(context.Background(), func(ctx context.Context) error {
		return failure
	})

	assert.ErrorIs(t, err, failure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestWithinTx_RollbackOnCancel aborts the unit when the caller goes away.
*/
func TestWithinTx_RollbackOnCancel(t *testing.T) {
	mock := newMock(t)
	manager := postgres.NewTxManager(mock)

	mock.ExpectBeginTx(serializable)
	mock.ExpectRollback()

	ctx, cancel := context.WithCancel(context.Background())
	err := manager.WithinTx(ctx, func(ctx context.Context) error {
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestWithinTx_RollbackOnPanic re-raises the panic after rolling back.
*/
func TestWithinTx_RollbackOnPanic(t *testing.T) {
	mock := newMock(t)
	manager := postgres.NewTxManager(mock)

	mock.ExpectBeginTx(serializable)
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = manager.WithinTx(context.Background(), func(ctx context.Context) error {
			panic("unexpected")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestWithinTx_Nested joins the outer transaction instead of opening another.
*/
func TestWithinTx_Nested(t *testing.T) {
	mock := newMock(t)
	manager := postgres.NewTxManager(mock)

	mock.ExpectBeginTx(serializable)
	mock.ExpectCommit()

	err := manager.WithinTx(context.Background(), func(ctx context.Context) error {
		return manager.WithinTx(ctx, func(ctx context.Context) error { return nil })
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestWithinTx_SerializationFailure surfaces lost races as dberr.ErrTxConflict.
*/
func TestWithinTx_SerializationFailure(t *testing.T) {
	mock := newMock(t)
	manager := postgres.NewTxManager(mock)

	mock.ExpectBeginTx(serializable)
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	mock.ExpectRollback()

	err := manager.WithinTx(context.Background(), func(ctx context.Context) error { return nil })

	assert.ErrorIs(t, err, dberr.ErrTxConflict)
}

/*
TestConn falls back to the pool outside a transaction.
*/
func TestConn(t *testing.T) {
	mock := newMock(t)
	assert.Equal(t, postgres.Querier(mock), postgres.Conn(context.Background(), mock))
}
