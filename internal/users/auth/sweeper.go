// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically reclaims expired sessions and spent reset grants.
//
// Correctness never depends on it: every flow re-checks expiry itself.
type Sweeper struct {
	sessions    SessionStore
	resetTokens ResetTokenStore
	interval    time.Duration
	logger      *slog.Logger
}

// NewSweeper returns a sweeper running every interval.
func NewSweeper(sessions SessionStore, resetTokens ResetTokenStore, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		sessions:    sessions,
		resetTokens: resetTokens,
		interval:    interval,
		logger:      logger,
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (sweeper *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sweeper.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := sweeper.SweepOnce(ctx); err != nil {
				sweeper.logger.WarnContext(ctx, "auth_sweep_failed", slog.Any("error", err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// SweepOnce deletes everything expired at the current time.
func (sweeper *Sweeper) SweepOnce(ctx context.Context) error {
	now := time.Now()

	sessions, err := sweeper.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}

	grants, err := sweeper.resetTokens.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}

	if sessions > 0 || grants > 0 {
		sweeper.logger.InfoContext(ctx, "auth_sweep_completed",
			slog.Int64("sessions_deleted", sessions),
			slog.Int64("reset_tokens_deleted", grants),
		)
	}

	return nil
}
