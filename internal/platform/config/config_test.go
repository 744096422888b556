// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/config"
	"github.com/taibuivan/yomira-auth/internal/platform/oauth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// setenv applies a baseline valid environment plus overrides.
func setenv(t *testing.T, overrides map[string]string) {
	t.Helper()
	baseline := map[string]string{
		"JWT_SECRET":       testSecret,
		"STORE_BACKEND":    config.BackendMemory,
		"DATABASE_URL":     "",
		"SMTP_HOST":        "",
		"ENVIRONMENT":      "development",
		"MIGRATION_PATH":   "",
		"GOOGLE_CLIENT_ID": "",
		"GITHUB_CLIENT_ID": "",
		"ALLOWED_ORIGINS":  "",
	}
	for key, value := range overrides {
		baseline[key] = value
	}
	for key, value := range baseline {
		t.Setenv(key, value)
	}
}

/*
TestLoad_Defaults fills every tunable from its default.
*/
func TestLoad_Defaults(t *testing.T) {
	setenv(t, nil)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 3, cfg.NotifyMaxAttempts)
	assert.Empty(t, cfg.MigrationPath)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

/*
TestLoad_Rejections reports invalid environments instead of starting.
*/
func TestLoad_Rejections(t *testing.T) {
	cases := []struct {
		name      string
		overrides map[string]string
		mentions  string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"short secret", map[string]string{"JWT_SECRET": "too-short"}, "at least 32 bytes"},
		{"postgres without url", map[string]string{"STORE_BACKEND": config.BackendPostgres}, "DATABASE_URL"},
		{"unknown backend", map[string]string{"STORE_BACKEND": "sqlite"}, "STORE_BACKEND"},
		{"zero attempts", map[string]string{"NOTIFY_MAX_ATTEMPTS": "0"}, "NOTIFY_MAX_ATTEMPTS"},
		{"negative ttl", map[string]string{"RESET_TOKEN_TTL": "-1m"}, "lifetimes"},
		{"bad duration", map[string]string{"JWT_ACCESS_TTL": "soon"}, "soon"},
		{"production without smtp", map[string]string{"ENVIRONMENT": "production"}, "SMTP_HOST"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setenv(t, tc.overrides)

			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.mentions)
		})
	}
}

/*
TestConfig_DerivedSettings hands each component its slice of the configuration.
*/
func TestConfig_DerivedSettings(t *testing.T) {
	setenv(t, map[string]string{
		"STORE_BACKEND":        config.BackendPostgres,
		"DATABASE_URL":         "postgres://auth:auth@db:5432/auth",
		"DATABASE_MAX_CONNS":   "8",
		"STORE_TIMEOUT":        "2s",
		"GOOGLE_CLIENT_ID":     "google-id",
		"GOOGLE_CLIENT_SECRET": "google-secret",
		"FRONTEND_URL":         "https://app.yomira.io/",
		"ALLOWED_ORIGINS":      "https://admin.yomira.io, ,https://beta.yomira.io",
	})

	cfg, err := config.Load()
	require.NoError(t, err)

	pool := cfg.PoolConfig()
	assert.Equal(t, "postgres://auth:auth@db:5432/auth", pool.DSN)
	assert.Equal(t, int32(8), pool.MaxConns)
	assert.Equal(t, 2*time.Second, pool.StatementTimeout)

	tokens := cfg.TokenConfig()
	assert.Equal(t, []byte(testSecret), tokens.Secret)
	assert.Equal(t, "yomira-auth", tokens.Issuer)

	assert.Equal(t, []string{oauth.ProviderGoogle}, oauth.NewRegistry(cfg.OAuthProviders()...).Names())

	_, smtpEnabled := cfg.SMTPConfig()
	assert.False(t, smtpEnabled)

	assert.Equal(t, []string{"https://app.yomira.io", "https://admin.yomira.io", "https://beta.yomira.io"}, cfg.AllowedOrigins())
	assert.Equal(t, 3, cfg.RetryConfig().MaxAttempts)
}

/*
TestConfig_SMTP enables delivery once a relay host is set, which production
requires.
*/
func TestConfig_SMTP(t *testing.T) {
	setenv(t, map[string]string{"SMTP_HOST": "smtp.yomira.io", "SMTP_PORT": "2525", "ENVIRONMENT": "production"})

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())

	smtp, enabled := cfg.SMTPConfig()
	require.True(t, enabled)
	assert.Equal(t, "smtp.yomira.io", smtp.Host)
	assert.Equal(t, 2525, smtp.Port)
	assert.True(t, smtp.RequireTLS)
}
