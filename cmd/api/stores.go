// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/taibuivan/yomira-auth/data"
	"github.com/taibuivan/yomira-auth/internal/api"
	"github.com/taibuivan/yomira-auth/internal/platform/config"
	"github.com/taibuivan/yomira-auth/internal/platform/memdb"
	"github.com/taibuivan/yomira-auth/internal/platform/migration"
	pgstore "github.com/taibuivan/yomira-auth/internal/platform/postgres"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
)

// stores is the persistence layer selected by STORE_BACKEND.
type stores struct {
	transactor    auth.Transactor
	accounts      account.Repository
	credentials   auth.CredentialStore
	sessions      auth.SessionStore
	resetTokens   auth.ResetTokenStore
	identityLinks auth.IdentityLinkStore

	// checkDatabase is nil for backends without a remote dependency.
	checkDatabase api.Check
	close         func()
}

// openStores builds every store on the configured backend.
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return openPostgresStores(ctx, cfg, log)
	case config.BackendMemory:
		return openMemoryStores(log), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openPostgresStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	pool, err := pgstore.NewPool(ctx, cfg.PoolConfig(), log)
	if err != nil {
		return nil, err
	}

	source, dir := fs.FS(data.Migrations), data.MigrationsDir
	if cfg.MigrationPath != "" {
		source, dir = os.DirFS(cfg.MigrationPath), "."
	}

	if err := migration.RunUp(cfg.DatabaseURL, source, dir, log); err != nil {
		pool.Close()
		return nil, err
	}

	return &stores{
		transactor:    pgstore.NewTxManager(pool),
		accounts:      account.NewPostgresRepository(pool),
		credentials:   auth.NewCredentialRepository(pool),
		sessions:      auth.NewSessionRepository(pool),
		resetTokens:   auth.NewResetTokenRepository(pool),
		identityLinks: auth.NewIdentityLinkRepository(pool),
		checkDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		close: func() {
			log.Info("postgres_pool_closing")
			pool.Close()
		},
	}, nil
}

func openMemoryStores(log *slog.Logger) *stores {
	log.Warn("memory_store_enabled", slog.String("note", "all data is lost on restart"))

	db := memdb.New()
	return &stores{
		transactor:    db,
		accounts:      account.NewMemoryRepository(db),
		credentials:   auth.NewMemoryCredentialStore(db),
		sessions:      auth.NewMemorySessionStore(db),
		resetTokens:   auth.NewMemoryResetTokenStore(db),
		identityLinks: auth.NewMemoryIdentityLinkStore(db),
		close:         func() {},
	}
}
