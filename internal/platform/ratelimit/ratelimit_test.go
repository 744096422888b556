// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/ratelimit"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

/*
TestLimiter_FixedWindow allows `limit` hits then blocks until the window expires.
*/
func TestLimiter_FixedWindow(t *testing.T) {
	server, client := newRedis(t)
	limiter := ratelimit.New(client, 3, time.Minute)
	ctx := context.Background()

	for hit := 1; hit <= 3; hit++ {
		decision, err := limiter.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "hit %d", hit)
		assert.Equal(t, 3-hit, decision.Remaining)
	}

	decision, err := limiter.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))

	// Other keys keep their own counter.
	other, err := limiter.Allow(ctx, "login:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	server.FastForward(time.Minute + time.Second)

	decision, err = limiter.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

/*
TestMiddleware rejects over-quota requests and fails open without Redis.
*/
func TestMiddleware(t *testing.T) {
	server, client := newRedis(t)
	limiter := ratelimit.New(client, 1, time.Minute)

	handler := ratelimit.Middleware(limiter, "reset", func(*http.Request) string { return "ip" })(
		http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.WriteHeader(http.StatusNoContent)
		}),
	)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	server.Close()

	degraded := httptest.NewRecorder()
	handler.ServeHTTP(degraded, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, degraded.Code)
}
