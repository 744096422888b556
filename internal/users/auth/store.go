// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/mailer"
	"github.com/taibuivan/yomira-auth/internal/platform/oauth"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
)

// # Storage Contracts
//
// Lookups return (nil, nil) when no row matches. Every method joins the
// transaction carried by its context, if any.

// Transactor runs a unit of work atomically.
//
// Either every write made through the ctx handed to fn becomes visible, or
// none does. fn's error, a panic inside fn, and cancellation of ctx all roll
// the unit back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CredentialStore persists password hashes, one per account.
type CredentialStore interface {
	/*
		Find returns the credential of an account.

		Parameters:
		  - context: context.Context
		  - accountID: string

		Returns:
		  - *Credential: The credential, or nil for OAuth-only accounts
		  - error: Storage failures
	*/
	Find(context context.Context, accountID string) (*Credential, error)

	// Create stores the first credential of an account.
	Create(context context.Context, credential *Credential) error

	/*
		ReplaceHash swaps the whole password hash of an account.

		Returns:
		  - bool: false when the account has no credential
		  - error: Storage failures
	*/
	ReplaceHash(context context.Context, accountID, passwordHash string, updatedAt time.Time) (bool, error)
}

// SessionStore persists refresh-token-backed sessions.
type SessionStore interface {
	Create(context context.Context, session *Session) error

	// FindByTokenHash looks a session up by the SHA-256 digest of its refresh token.
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	/*
		Delete removes one session.

		Description: The delete is conditional: of several concurrent callers
		removing the same session, exactly one observes true.

		Returns:
		  - bool: Whether this call removed the row
		  - error: Storage failures
	*/
	Delete(context context.Context, id string) (bool, error)

	// DeleteAllFor removes every session of an account and returns how many were removed.
	DeleteAllFor(context context.Context, accountID string) (int64, error)

	// DeleteExpired removes sessions whose expiry is before now.
	DeleteExpired(context context.Context, now time.Time) (int64, error)
}

// ResetTokenStore persists single-use password reset grants.
type ResetTokenStore interface {
	Create(context context.Context, token *ResetToken) error

	// FindByTokenHash looks a grant up by the SHA-256 digest of its raw value.
	FindByTokenHash(context context.Context, tokenHash string) (*ResetToken, error)

	/*
		MarkUsed flips the used flag of an unused grant.

		Returns:
		  - bool: false when the grant is missing or was already used
		  - error: Storage failures
	*/
	MarkUsed(context context.Context, id string) (bool, error)

	// DeleteExpired removes grants that are used or expired at now.
	DeleteExpired(context context.Context, now time.Time) (int64, error)
}

// IdentityLinkStore persists (provider, external id) to account mappings.
type IdentityLinkStore interface {
	FindByProviderAndExternalID(context context.Context, provider Provider, externalID string) (*IdentityLink, error)

	// Create stores a new link. A taken (provider, external id) pair yields dberr.ErrDuplicate.
	Create(context context.Context, link *IdentityLink) error

	// ReplaceAccessToken overwrites the cached provider token of a link in place.
	ReplaceAccessToken(context context.Context, id string, accessToken *string, updatedAt time.Time) error
}

// # Collaborator Contracts

// TokenIssuer mints and verifies signed bearer tokens.
type TokenIssuer interface {
	IssueAccessToken(accountID, email string) (string, error)
	IssueRefreshToken(accountID, email string) (string, error)
	VerifyKind(token string, kind sec.TokenKind) (*sec.AuthClaims, error)
	ExpiryOf(token string) (time.Time, error)
}

// PasswordHasher produces and checks salted one-way password hashes.
type PasswordHasher interface {
	Hash(plainTextPassword string) (string, error)
	Verify(plainTextPassword, existingHash string) (bool, error)
}

// IdentityExchanger talks to external identity providers.
type IdentityExchanger interface {
	AuthCodeURL(config oauth.ProviderConfig, state string) string
	ExchangeCode(ctx context.Context, config oauth.ProviderConfig, code string) (string, error)
	FetchProfile(ctx context.Context, config oauth.ProviderConfig, accessToken string) (*oauth.Profile, error)
}

// ProviderLookup resolves a provider tag to its configuration.
type ProviderLookup interface {
	Lookup(name string) (oauth.ProviderConfig, bool)
}

// Notifier delivers rendered email.
type Notifier interface {
	Send(ctx context.Context, message mailer.Message) error
}
