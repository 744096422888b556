// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil stores and reads the per-request values that middleware
// attaches: correlation ID, logger and caller identity.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/yomira-auth/internal/platform/ctxkey"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
)

// value reads key from ctx, returning the zero T when absent or mistyped.
func value[T any](ctx context.Context, key *ctxkey.Key) T {
	typed, _ := ctx.Value(key).(T)
	return typed
}

// WithRequestID attaches the correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.RequestID, id)
}

// RequestID returns the correlation ID, or "" outside a request.
func RequestID(ctx context.Context) string {
	return value[string](ctx, ctxkey.RequestID)
}

// WithLogger attaches a request-scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.Logger, logger)
}

// Logger returns the request-scoped logger, falling back to [slog.Default].
func Logger(ctx context.Context) *slog.Logger {
	if logger := value[*slog.Logger](ctx, ctxkey.Logger); logger != nil {
		return logger
	}
	return slog.Default()
}

// WithClaims attaches the verified access-token claims.
func WithClaims(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, ctxkey.Claims, claims)
}

// Claims returns the caller's claims, or nil for anonymous requests.
func Claims(ctx context.Context) *sec.AuthClaims {
	return value[*sec.AuthClaims](ctx, ctxkey.Claims)
}

// AccountID returns the authenticated account, or "" for anonymous requests.
func AccountID(ctx context.Context) string {
	if claims := Claims(ctx); claims != nil {
		return claims.AccountID
	}
	return ""
}
