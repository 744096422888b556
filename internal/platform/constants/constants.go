// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants holds the fixed values shared across layers: server
timing, the process-wide rate limit, cookie names and wire identifiers.

Anything an operator should tune belongs in the config package instead.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "yomira-auth"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	DefaultReadTimeout       = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout cancels the context of any request running longer.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout bounds the drain of in-flight requests on SIGTERM.
	ShutdownTimeout = 30 * time.Second
)

// # Process-wide Rate Limit

const (
	DefaultRateLimitRPS   = 100.0
	DefaultRateLimitBurst = 150

	// Buckets idle for RateLimitClientTTL are dropped every RateLimitCleanupInterval.
	RateLimitCleanupInterval = time.Minute
	RateLimitClientTTL       = 3 * time.Minute
)

// # Cookies and Links

const (
	// RefreshTokenCookieName carries the refresh token for browser clients.
	RefreshTokenCookieName = "refresh_token"

	// RefreshTokenCookiePath scopes both cookies to the auth routes.
	RefreshTokenCookiePath = "/api/v1/auth"

	// OAuthStateCookieName carries the anti-CSRF state between authorize and callback.
	OAuthStateCookieName = "oauth_state"

	// OAuthStateTTL bounds how long a user may spend on the provider consent screen.
	OAuthStateTTL = 10 * time.Minute

	// ResetPasswordPath is appended to the frontend URL to build reset links.
	ResetPasswordPath = "/reset-password"
)

// # HTTP Headers

const (
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
	HeaderOrigin        = "Origin"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderRetryAfter    = "Retry-After"
)

// # Response Fields

const (
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Keys

const (
	RedisPrefixRateLimit = "auth:ratelimit:"
)
