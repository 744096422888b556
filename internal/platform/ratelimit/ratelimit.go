// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ratelimit enforces fixed-window request quotas shared by every API
replica through Redis.

It protects the credential endpoints (login, register, password reset)
against brute force and mail flooding. The in-process token bucket in the
middleware package remains the coarse global guard.
*/
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/ctxutil"
	"github.com/taibuivan/yomira-auth/internal/platform/respond"
)

// Decision is the outcome of one [Limiter.Allow] call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts hits per key in fixed windows.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// New returns a limiter allowing limit hits per key in every window.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window}
}

/*
Allow records one hit for key and reports whether it fits the quota.

Description: The first hit of a window starts the key's TTL; later hits only
increment. INCR and the TTL read travel in one pipeline.

Parameters:
  - ctx: context.Context
  - key: string (caller-scoped, e.g. "login:203.0.113.7")

Returns:
  - Decision: Allowed flag, remaining hits and the wait until the window resets
  - error: Redis failures
*/
func (limiter *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := constants.RedisPrefixRateLimit + key

	var count *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := limiter.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, redisKey)
		ttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis pipeline failed: %w", err)
	}

	hits := count.Val()
	remainingTTL := ttl.Val()

	// A missing TTL means this hit opened the window, or a previous EXPIRE was lost.
	if remainingTTL < 0 {
		if err := limiter.client.PExpire(ctx, redisKey, limiter.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: failed to set window: %w", err)
		}
		remainingTTL = limiter.window
	}

	decision := Decision{
		Allowed:    hits <= int64(limiter.limit),
		Remaining:  max(limiter.limit-int(hits), 0),
		RetryAfter: remainingTTL,
	}
	return decision, nil
}

// # HTTP Middleware

// KeyFunc derives the quota key from a request.
type KeyFunc func(request *http.Request) string

/*
Middleware rejects requests over quota with 429 and a Retry-After header.

Description: Keys are namespaced by scope so different endpoint groups keep
separate counters. A Redis failure lets the request through and is logged,
so a cache outage cannot lock users out.

Parameters:
  - limiter: *Limiter
  - scope: string (e.g. "login")
  - keyOf: KeyFunc (usually the client IP)
*/
func Middleware(limiter *Limiter, scope string, keyOf KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			decision, err := limiter.Allow(request.Context(), scope+":"+keyOf(request))
			if err != nil {
				ctxutil.Logger(request.Context()).WarnContext(request.Context(), "ratelimit_unavailable",
					slog.String("scope", scope),
					slog.Any("error", err),
				)
				next.ServeHTTP(writer, request)
				return
			}

			if !decision.Allowed {
				respond.Error(writer, request, apperr.RateLimited(decision.RetryAfter))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
