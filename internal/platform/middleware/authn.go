// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/ctxutil"
	"github.com/taibuivan/yomira-auth/internal/platform/respond"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
)

// TokenVerifier verifies access tokens for the middleware.
//
// Only access tokens may authenticate a request; refresh tokens are rejected.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*sec.AuthClaims, error)
}

/*
Authenticate extracts and verifies the bearer token from the Authorization header.

Flow:
 1. No Authorization header: the request proceeds as anonymous.
 2. A malformed header or an invalid token aborts with 401.
 3. Valid claims are injected into the context and the request logger
    gains an account_id attribute.

Parameters:
  - verifier: TokenVerifier

Returns:
  - func(http.Handler) http.Handler
*/
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get(constants.HeaderAuthorization)

			// 1. Anonymous Access
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// 2. Format Validation
			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// 3. Token Verification
			claims, err := verifier.VerifyToken(strings.TrimSpace(tokenString))
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			// 4. Context Injection
			ctx := ctxutil.WithClaims(request.Context(), claims)
			logger := ctxutil.Logger(ctx).With(slog.String("account_id", claims.AccountID))
			ctx = ctxutil.WithLogger(ctx, logger)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
// It must be registered after [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if GetUser(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// GetUser returns the authenticated claims, or nil for anonymous requests.
func GetUser(ctx context.Context) *sec.AuthClaims {
	return ctxutil.Claims(ctx)
}
