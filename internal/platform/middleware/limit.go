// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/respond"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter is an in-process token bucket per client IP.
//
// It is the coarse global guard; credential endpoints additionally use the
// Redis-backed quotas of the ratelimit package.
type IPLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rps     rate.Limit
	burst   int
	now     func() time.Time
}

// NewIPLimiter returns a limiter refilling rps tokens per second up to burst.
func NewIPLimiter(rps float64, burst int) *IPLimiter {
	return &IPLimiter{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow takes one token from the bucket of clientIP.
func (limiter *IPLimiter) Allow(clientIP string) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.now()
	entry, found := limiter.buckets[clientIP]
	if !found {
		entry = &bucket{limiter: rate.NewLimiter(limiter.rps, limiter.burst)}
		limiter.buckets[clientIP] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// Evict drops buckets idle for longer than ttl and reports how many went.
func (limiter *IPLimiter) Evict(ttl time.Duration) int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	cutoff := limiter.now().Add(-ttl)
	evicted := 0
	for ip, entry := range limiter.buckets {
		if entry.lastSeen.Before(cutoff) {
			delete(limiter.buckets, ip)
			evicted++
		}
	}
	return evicted
}

func (limiter *IPLimiter) evictUntilDone(ctx context.Context) {
	ticker := time.NewTicker(constants.RateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			limiter.Evict(constants.RateLimitClientTTL)
		case <-ctx.Done():
			return
		}
	}
}

// RateLimit answers 429 once a client IP drains its bucket.
//
// Idle buckets are evicted in the background until ctx is cancelled.
func RateLimit(ctx context.Context, limiter *IPLimiter) func(http.Handler) http.Handler {
	go limiter.evictUntilDone(ctx)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !limiter.Allow(RealIP(request)) {
				respond.Error(writer, request, apperr.RateLimited(time.Second))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RealIP returns the client address, preferring X-Real-IP then the first
// X-Forwarded-For hop. The API is expected to sit behind a proxy that sets them.
func RealIP(request *http.Request) string {
	if ip := strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)); ip != "" {
		return ip
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
