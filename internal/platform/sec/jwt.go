// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces declared by the consumers.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// # Token Errors

var (
	// ErrTokenInvalid reports a bad signature, a malformed token, or a kind mismatch.
	ErrTokenInvalid = errors.New("sec: token invalid")

	// ErrTokenExpired reports a well-signed token whose expiry has passed.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenMalformed reports a token without a readable expiry claim.
	ErrTokenMalformed = errors.New("sec: token malformed")
)

// # Token Kinds

// TokenKind discriminates the two bearer token families.
type TokenKind string

const (
	// KindAccess is the short-lived per-request credential.
	KindAccess TokenKind = "access"

	// KindRefresh is the long-lived credential backed by a session row.
	KindRefresh TokenKind = "refresh"
)

// AuthClaims represents the payload embedded inside a signed token.
//
// # Why custom claims?
//
// By embedding the AccountID and Email directly inside the JWT, the
// [middleware.Authenticate] can reconstruct the caller WITHOUT querying the
// database on every API request.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	AccountID string    `json:"uid"`
	Email     string    `json:"eml"`
	Kind      TokenKind `json:"knd"`
}

// TokenConfig is the immutable signing configuration of a [TokenIssuer].
type TokenConfig struct {
	// Secret is the HMAC key. It must be at least 32 bytes.
	Secret []byte

	// Issuer is the 'iss' claim written and required on every token.
	Issuer string

	// AccessTTL and RefreshTTL are the independent lifetimes of the two kinds.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// minSecretLength is the smallest HMAC key accepted by [NewTokenIssuer].
const minSecretLength = 32

// TokenIssuer mints and verifies HS256 tokens.
//
// It is stateless and safe for concurrent use: validity is checked from the
// token alone. Revocation is a store concern (a deleted session).
type TokenIssuer struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenIssuer validates the configuration and returns a ready issuer.
func NewTokenIssuer(config TokenConfig) (*TokenIssuer, error) {
	if len(config.Secret) < minSecretLength {
		return nil, fmt.Errorf("sec: jwt secret must be at least %d bytes", minSecretLength)
	}
	if config.AccessTTL <= 0 || config.RefreshTTL <= 0 {
		return nil, errors.New("sec: token lifetimes must be positive")
	}

	secret := make([]byte, len(config.Secret))
	copy(secret, config.Secret)
	config.Secret = secret

	return &TokenIssuer{config: config, now: time.Now}, nil
}

// WithClock returns a copy of the issuer that reads time from now.
func (issuer *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	clone := *issuer
	clone.now = now
	return &clone
}

// IssueAccessToken creates a signed access token for an account.
func (issuer *TokenIssuer) IssueAccessToken(accountID, email string) (string, error) {
	return issuer.issue(accountID, email, KindAccess, issuer.config.AccessTTL)
}

// IssueRefreshToken creates a signed refresh token for an account.
func (issuer *TokenIssuer) IssueRefreshToken(accountID, email string) (string, error) {
	return issuer.issue(accountID, email, KindRefresh, issuer.config.RefreshTTL)
}

func (issuer *TokenIssuer) issue(accountID, email string, kind TokenKind, timeToLive time.Duration) (string, error) {
	currentTime := issuer.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// A unique jti keeps two tokens minted in the same second distinct,
			// which matters because refresh tokens are session lookup keys.
			ID:        uuid.New(),
			Subject:   accountID,
			Issuer:    issuer.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		AccountID: accountID,
		Email:     email,
		Kind:      kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(issuer.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature, issuer, and expiry of a token.
//
// It returns [ErrTokenExpired] for a valid but expired token and
// [ErrTokenInvalid] for everything else. It does not check the kind.
func (issuer *TokenIssuer) Verify(tokenString string) (*AuthClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(issuer.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &AuthClaims{}, func(*jwt.Token) (any, error) {
		return issuer.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.AccountID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// VerifyKind verifies a token and requires it to be of the expected kind.
func (issuer *TokenIssuer) VerifyKind(tokenString string, kind TokenKind) (*AuthClaims, error) {
	claims, err := issuer.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrTokenInvalid, kind, claims.Kind)
	}
	return claims, nil
}

// VerifyToken satisfies the middleware verifier contract: only access tokens
// authenticate API requests.
func (issuer *TokenIssuer) VerifyToken(tokenString string) (*AuthClaims, error) {
	return issuer.VerifyKind(tokenString, KindAccess)
}

// ExpiryOf reads the expiry claim without verifying the signature.
func (issuer *TokenIssuer) ExpiryOf(tokenString string) (time.Time, error) {
	claims := &AuthClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrTokenMalformed
	}
	return claims.ExpiresAt.Time, nil
}
