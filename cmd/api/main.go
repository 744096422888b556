// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the yomira-auth HTTP server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the stores (PostgreSQL with migrations, or in-memory).
//  4. Connect to Redis when configured.
//  5. Build the token issuer, hasher, identity exchanger and notifier.
//  6. Wire services and HTTP handlers.
//  7. Start the expiry sweeper and the HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/yomira-auth/internal/api"
	"github.com/taibuivan/yomira-auth/internal/platform/config"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/mailer"
	"github.com/taibuivan/yomira-auth/internal/platform/middleware"
	"github.com/taibuivan/yomira-auth/internal/platform/oauth"
	"github.com/taibuivan/yomira-auth/internal/platform/ratelimit"
	redisstore "github.com/taibuivan/yomira-auth/internal/platform/redis"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	log := newLogger(slog.LevelInfo)
	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store_backend", cfg.StoreBackend),
	)

	// Cancelled on SIGINT/SIGTERM; stops every background loop.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Startup gets a deadline so misconfiguration fails fast.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. Stores ─────────────────────────────────────────────────────────
	backend, err := openStores(startupCtx, cfg, log)
	must(log, err, "open stores")
	defer backend.close()

	// ── 4. Redis (optional) ───────────────────────────────────────────────
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("redis_client_closing")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		}()
	} else {
		log.Warn("redis_disabled", slog.String("note", "credential endpoints keep only the per-process limit"))
	}

	// ── 5. Collaborators ──────────────────────────────────────────────────
	issuer, err := sec.NewTokenIssuer(cfg.TokenConfig())
	must(log, err, "initialize token issuer")

	notifier := mailer.NewNotifier(newSender(cfg, log), cfg.RetryConfig(), log)
	providers := oauth.NewRegistry(cfg.OAuthProviders()...)
	log.Info("oauth_providers_enabled", slog.Any("providers", providers.Names()))

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	authService := auth.NewService(auth.Dependencies{
		Transactor:    backend.transactor,
		Accounts:      backend.accounts,
		Credentials:   backend.credentials,
		Sessions:      backend.sessions,
		ResetTokens:   backend.resetTokens,
		IdentityLinks: backend.identityLinks,
		Tokens:        issuer,
		Hasher:        sec.NewBcryptHasher(cfg.BcryptCost),
		Exchanger:     oauth.NewExchanger(nil),
		Providers:     providers,
		Notifier:      notifier,
	}, auth.Settings{
		ResetTokenTTL:   cfg.ResetTokenTTL,
		FrontendURL:     cfg.FrontendURL,
		StoreTimeout:    cfg.StoreTimeout,
		HashTimeout:     cfg.HashTimeout,
		ExchangeTimeout: cfg.ExchangeTimeout,
		NotifyTimeout:   cfg.NotifyTimeout,
	}, log)

	accountService := account.NewService(backend.accounts, log)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: backend.checkDatabase,
		CheckCache:    cacheCheck(rdb),
	}, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, authGuards(cfg, rdb)),
		Account:   account.NewHandler(accountService),
	}

	limiter := middleware.NewIPLimiter(constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst)
	server := api.NewServer(rootCtx, cfg, log, issuer, limiter, handlers)

	// ── 7. Background Sweep ───────────────────────────────────────────────
	if cfg.SweepInterval > 0 {
		sweeper := auth.NewSweeper(backend.sessions, backend.resetTokens, cfg.SweepInterval, log)
		go sweeper.Run(rootCtx)
	}

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	shutdownErr := server.Shutdown(shutdownTimeout)

	// Reset emails still in flight are each bounded by NOTIFY_TIMEOUT.
	authService.Wait()

	if shutdownErr != nil {
		log.Error("shutdown_failed", slog.Any("error", shutdownErr))
		return
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the JSON logger and installs it as the default.
func newLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))
	slog.SetDefault(logger)
	return logger
}

// newSender delivers through SMTP when configured. Without a relay, which
// config rejects in production, messages are dropped with a log line.
func newSender(cfg *config.Config, log *slog.Logger) mailer.Sender {
	smtpConfig, enabled := cfg.SMTPConfig()
	if !enabled {
		log.Warn("smtp_disabled", slog.String("note", "reset emails are not delivered"))
		return mailer.NewLogSender(log)
	}

	sender, err := mailer.NewSMTPSender(smtpConfig)
	must(log, err, "initialize smtp sender")
	return sender
}

// authGuards applies the distributed quotas when Redis is available.
func authGuards(cfg *config.Config, rdb *goredis.Client) auth.Guards {
	if rdb == nil {
		return auth.Guards{}
	}

	limiter := ratelimit.New(rdb, cfg.AuthRateLimit, cfg.AuthRateWindow)
	return auth.Guards{
		Credentials: ratelimit.Middleware(limiter, "credentials", middleware.RealIP),
		Recovery:    ratelimit.Middleware(limiter, "recovery", middleware.RealIP),
	}
}

func cacheCheck(rdb *goredis.Client) api.Check {
	if rdb == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return redisstore.Ping(ctx, rdb)
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failed",
			slog.String("step", step),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
