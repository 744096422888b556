// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/oauth"
)

// # Identity Providers

// Provider tags the origin of an identity link.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = oauth.ProviderGoogle
	ProviderGitHub Provider = oauth.ProviderGitHub
)

// # Domain Entities

// Credential holds the password hash of an account. OAuth-only accounts have none.
type Credential struct {
	AccountID    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session backs exactly one live refresh token.
//
// The token itself is never stored; TokenHash is its SHA-256 digest and is
// the lookup key.
type Session struct {
	ID        string
	AccountID string
	TokenHash string
	UserAgent string
	IPAddress string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (session *Session) Expired(now time.Time) bool {
	return session.ExpiresAt.Before(now)
}

// ResetToken is a single-use password reset grant.
//
// Its lifecycle is fresh, then used or expired; both end states are terminal
// and indistinguishable to the caller.
type ResetToken struct {
	ID        string
	AccountID string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Usable reports whether the token can still be consumed at now.
func (token *ResetToken) Usable(now time.Time) bool {
	return !token.Used && now.Before(token.ExpiresAt)
}

// IdentityLink maps a provider-scoped external identity to an account.
// (Provider, ExternalID) is globally unique.
type IdentityLink struct {
	ID          string
	AccountID   string
	Provider    Provider
	ExternalID  string
	AccessToken *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// # Results

// ClientMeta describes the device a session is issued to.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// AccountView is the minimal account projection returned with a token pair.
type AccountView struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName *string `json:"name,omitempty"`
}

// Result is the outcome of every operation that starts a session.
type Result struct {
	AccessToken           string      `json:"access_token"`
	RefreshToken          string      `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time   `json:"-"`
	Account               AccountView `json:"account"`
}
