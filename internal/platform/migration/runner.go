// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration brings the credential schema up to date at startup
// with golang-migrate.
//
// Migrations are read from any [fs.FS]: the schema embedded in the binary by
// default, or a directory on disk when an operator overrides it.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Registers the "pgx5" database scheme.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// driverScheme is the URL scheme the pgx/v5 driver registers.
const driverScheme = "pgx5://"

/*
RunUp applies every pending migration found under dir in source.

Parameters:
  - dsn: string (postgres://, postgresql:// or pgx5:// URL)
  - source: fs.FS
  - dir: string (path of the migrations inside source)
  - logger: *slog.Logger

Returns:
  - error: Unreadable source, dirty schema or a failed migration
*/
func RunUp(dsn string, source fs.FS, dir string, logger *slog.Logger) error {
	driver, err := iofs.New(source, dir)
	if err != nil {
		return fmt.Errorf("migration_source_open_failed: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", driver, DriverURL(dsn))
	if err != nil {
		return fmt.Errorf("migration_init_failed: %w", err)
	}
	defer func() {
		sourceErr, databaseErr := migrator.Close()
		if closeErr := errors.Join(sourceErr, databaseErr); closeErr != nil {
			logger.Error("migration_close_failed", slog.Any("error", closeErr))
		}
	}()

	migrator.Log = &slogBridge{logger: logger}

	from, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return fmt.Errorf("migration_version_failed: %w", err)
	case dirty:
		return fmt.Errorf("migration_dirty_schema: version %d needs manual repair", from)
	}

	err = migrator.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("migration_up_to_date", slog.Uint64("version", uint64(from)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration_up_failed: %w", err)
	}

	to, _, _ := migrator.Version()
	logger.Info("migration_applied",
		slog.Uint64("from_version", uint64(from)),
		slog.Uint64("to_version", uint64(to)),
	)
	return nil
}

// DriverURL rewrites a postgres URL into the scheme golang-migrate expects.
func DriverURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return driverScheme + rest
		}
	}
	return dsn
}

// slogBridge adapts migrate.Logger to slog at debug level.
type slogBridge struct {
	logger *slog.Logger
}

func (bridge *slogBridge) Printf(format string, args ...any) {
	bridge.logger.Debug("migration_progress", slog.String("detail", strings.TrimSpace(fmt.Sprintf(format, args...))))
}

func (bridge *slogBridge) Verbose() bool {
	return bridge.logger.Enabled(context.Background(), slog.LevelDebug)
}
