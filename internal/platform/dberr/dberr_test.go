// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
)

/*
TestClassify maps Postgres error codes onto the package sentinels.
*/
func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"unique_violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, dberr.ErrDuplicate},
		{"serialization_failure", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, dberr.ErrTxConflict},
		{"deadlock", fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}), dberr.ErrTxConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, dberr.Classify(tt.err), tt.target)
		})
	}

	plain := errors.New("boom")
	assert.Equal(t, plain, dberr.Classify(plain))
	assert.NoError(t, dberr.Classify(nil))
}

/*
TestWrap checks the client-facing mapping of storage errors.
*/
func TestWrap(t *testing.T) {
	assert.NoError(t, dberr.Wrap(nil, "noop"))
	assert.Equal(t, dberr.ErrNotFound, dberr.Wrap(pgx.ErrNoRows, "find"))
	assert.True(t, apperr.HasCode(dberr.Wrap(&pgconn.PgError{Code: pgerrcode.UniqueViolation}, "create"), apperr.CodeConflict))
	assert.True(t, apperr.HasCode(dberr.Wrap(errors.New("io"), "create"), apperr.CodeInternal))
}
