// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// # Sentinels
//
// Stores never leak driver types. They return one of the sentinels below
// (wrapped with context) and callers test them with [errors.Is].
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")

	// ErrDuplicate reports a unique-constraint violation.
	ErrDuplicate = errors.New("dberr: duplicate key")

	// ErrTxConflict reports that a transaction lost a serialization race and was
	// rolled back. The caller may retry the whole unit.
	ErrTxConflict = errors.New("dberr: transaction conflict")
)

// Classify maps a driver error onto the package sentinels, keeping the
// original error in the chain for logging.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var pgError *pgconn.PgError
	if errors.As(err, &pgError) {
		switch pgError.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgError.ConstraintName)
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return fmt.Errorf("%w: %v", ErrTxConflict, err)
		}
	}

	return err
}

// IsNoRows reports whether err is the driver's "no rows" result.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if IsNoRows(err) {
		return ErrNotFound
	}

	// 2. Constraint mapping
	classified := Classify(err)
	if errors.Is(classified, ErrDuplicate) {
		return apperr.Conflict(action + ": already exists")
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(fmt.Errorf("%s: %w", action, classified))
}
