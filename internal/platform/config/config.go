// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Derived structs (token, OAuth, SMTP) are handed to components.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/yomira-auth/internal/platform/mailer"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/oauth"
	"github.com/taibuivan/yomira-auth/internal/platform/postgres"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
)

// # Store Backends

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// # Configuration Schema

// Config holds all runtime configuration for the auth API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// StoreBackend selects the persistence layer: "postgres" or "memory".
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	// Relational Database (PostgreSQL). Required for the postgres backend.
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"25"`
	DatabaseMinConns int32  `env:"DATABASE_MIN_CONNS" envDefault:"2"`

	// MigrationPath overrides the embedded schema with a directory on disk.
	MigrationPath string `env:"MIGRATION_PATH"`

	// Key-Value Cache (Redis). Optional; without it the auth endpoints keep
	// only the in-process rate limit.
	RedisURL string `env:"REDIS_URL"`

	// Token signing
	JWTSecret     string        `env:"JWT_SECRET,required"`
	JWTIssuer     string        `env:"JWT_ISSUER"      envDefault:"yomira-auth"`
	JWTAccessTTL  time.Duration `env:"JWT_ACCESS_TTL"  envDefault:"15m"`
	JWTRefreshTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	BcryptCost    int           `env:"BCRYPT_COST"     envDefault:"12"`

	// Password reset
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`
	FrontendURL   string        `env:"FRONTEND_URL"    envDefault:"http://localhost:3000"`

	// External identity providers. A provider is enabled when both its id and secret are set.
	OAuthRedirectBaseURL string `env:"OAUTH_REDIRECT_BASE_URL" envDefault:"http://localhost:8080/api/v1"`
	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID       string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret   string `env:"GITHUB_CLIENT_SECRET"`

	// Outbound mail. Without SMTP_HOST, messages are logged instead of sent.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"     envDefault:"no-reply@yomira.app"`
	SMTPTLS      bool   `env:"SMTP_TLS"      envDefault:"true"`

	// Collaborator deadlines
	StoreTimeout      time.Duration `env:"STORE_TIMEOUT"       envDefault:"5s"`
	HashTimeout       time.Duration `env:"HASH_TIMEOUT"        envDefault:"3s"`
	ExchangeTimeout   time.Duration `env:"EXCHANGE_TIMEOUT"    envDefault:"10s"`
	NotifyTimeout     time.Duration `env:"NOTIFY_TIMEOUT"      envDefault:"15s"`
	NotifyMaxAttempts int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`

	// Background expiry sweep. Zero disables it.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`

	// Distributed quota for credential endpoints
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT"  envDefault:"10"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"15m"`

	// Cross-Origin Resource Sharing
	Origins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// validate checks cross-field constraints env tags cannot express.
func (c *Config) validate() error {
	var problems []error

	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if len(c.JWTSecret) < 32 {
		problems = append(problems, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 || c.ResetTokenTTL <= 0 {
		problems = append(problems, errors.New("token lifetimes must be positive"))
	}
	if c.NotifyMaxAttempts < 1 {
		problems = append(problems, errors.New("NOTIFY_MAX_ATTEMPTS must be at least 1"))
	}
	if c.IsProduction() && c.SMTPHost == "" {
		problems = append(problems, errors.New("SMTP_HOST is required in production"))
	}

	return errors.Join(problems...)
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns the CORS allow-list, always including the frontend.
func (c *Config) AllowedOrigins() []string {
	origins := []string{strings.TrimRight(c.FrontendURL, "/")}
	for _, origin := range c.Origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// # Derived Settings

// TokenConfig returns the signing configuration of the token issuer.
func (c *Config) TokenConfig() sec.TokenConfig {
	return sec.TokenConfig{
		Secret:     []byte(c.JWTSecret),
		Issuer:     c.JWTIssuer,
		AccessTTL:  c.JWTAccessTTL,
		RefreshTTL: c.JWTRefreshTTL,
	}
}

// PoolConfig returns the PostgreSQL pool settings. Statements share the
// store deadline so a query never outlives the call that issued it.
func (c *Config) PoolConfig() postgres.PoolConfig {
	return postgres.PoolConfig{
		DSN:              c.DatabaseURL,
		ApplicationName:  constants.AppName,
		MaxConns:         c.DatabaseMaxConns,
		MinConns:         c.DatabaseMinConns,
		StatementTimeout: c.StoreTimeout,
	}
}

// OAuthProviders returns the configured identity providers. Disabled
// providers are dropped by [oauth.NewRegistry].
func (c *Config) OAuthProviders() []oauth.ProviderConfig {
	return []oauth.ProviderConfig{
		oauth.Google(c.GoogleClientID, c.GoogleClientSecret, c.OAuthRedirectBaseURL),
		oauth.GitHub(c.GitHubClientID, c.GitHubClientSecret, c.OAuthRedirectBaseURL),
	}
}

// SMTPConfig returns the relay settings, or false when mail delivery is disabled.
func (c *Config) SMTPConfig() (mailer.SMTPConfig, bool) {
	if c.SMTPHost == "" {
		return mailer.SMTPConfig{}, false
	}
	return mailer.SMTPConfig{
		Host:       c.SMTPHost,
		Port:       c.SMTPPort,
		Username:   c.SMTPUser,
		Password:   c.SMTPPassword,
		From:       c.SMTPFrom,
		RequireTLS: c.SMTPTLS,
	}, true
}

// RetryConfig returns the notifier retry policy.
func (c *Config) RetryConfig() mailer.RetryConfig {
	return mailer.RetryConfig{
		MaxAttempts:     c.NotifyMaxAttempts,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}
