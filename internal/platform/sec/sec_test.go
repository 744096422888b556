// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/yomira-auth/internal/platform/sec"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newIssuer(t *testing.T) *sec.TokenIssuer {
	t.Helper()
	issuer, err := sec.NewTokenIssuer(sec.TokenConfig{
		Secret:     testSecret,
		Issuer:     "yomira.test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return issuer
}

/*
TestTokenIssuer_Config rejects short secrets and non-positive lifetimes.
*/
func TestTokenIssuer_Config(t *testing.T) {
	_, err := sec.NewTokenIssuer(sec.TokenConfig{Secret: []byte("short"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	assert.Error(t, err)

	_, err = sec.NewTokenIssuer(sec.TokenConfig{Secret: testSecret, AccessTTL: 0, RefreshTTL: time.Hour})
	assert.Error(t, err)
}

/*
TestTokenIssuer_RoundTrip verifies claims and kind discrimination.
*/
func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := newIssuer(t)

	access, err := issuer.IssueAccessToken("acc-1", "a@x.com")
	require.NoError(t, err)
	refresh, err := issuer.IssueRefreshToken("acc-1", "a@x.com")
	require.NoError(t, err)

	claims, err := issuer.Verify(access)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, sec.KindAccess, claims.Kind)

	_, err = issuer.VerifyKind(refresh, sec.KindRefresh)
	assert.NoError(t, err)

	// A refresh token must never pass where an access token is required, and vice versa.
	_, err = issuer.VerifyToken(refresh)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
	_, err = issuer.VerifyKind(access, sec.KindRefresh)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenIssuer_UniqueTokens ensures two tokens minted at the same instant differ.
*/
func TestTokenIssuer_UniqueTokens(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := newIssuer(t).WithClock(func() time.Time { return fixed })

	first, err := issuer.IssueRefreshToken("acc-1", "a@x.com")
	require.NoError(t, err)
	second, err := issuer.IssueRefreshToken("acc-1", "a@x.com")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

/*
TestTokenIssuer_Failures covers expiry, tampering, and foreign signatures.
*/
func TestTokenIssuer_Failures(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	past := newIssuer(t).WithClock(func() time.Time { return issued })
	issuer := newIssuer(t)

	expired, err := past.IssueAccessToken("acc-1", "a@x.com")
	require.NoError(t, err)
	_, err = issuer.Verify(expired)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)

	valid, err := issuer.IssueAccessToken("acc-1", "a@x.com")
	require.NoError(t, err)
	refresh, err := issuer.IssueRefreshToken("acc-2", "b@x.com")
	require.NoError(t, err)
	validParts := strings.Split(valid, ".")
	refreshParts := strings.Split(refresh, ".")
	tampered := validParts[0] + "." + refreshParts[1] + "." + validParts[2]
	_, err = issuer.Verify(tampered)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)

	_, err = issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)

	foreign, err := sec.NewTokenIssuer(sec.TokenConfig{
		Secret:     []byte(strings.Repeat("z", 32)),
		Issuer:     "yomira.test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	require.NoError(t, err)
	other, err := foreign.IssueAccessToken("acc-1", "a@x.com")
	require.NoError(t, err)
	_, err = issuer.Verify(other)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenIssuer_ExpiryOf reads the expiry claim and rejects tokens without one.
*/
func TestTokenIssuer_ExpiryOf(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newIssuer(t).WithClock(func() time.Time { return fixed })

	refresh, err := issuer.IssueRefreshToken("acc-1", "a@x.com")
	require.NoError(t, err)

	expiry, err := issuer.ExpiryOf(refresh)
	require.NoError(t, err)
	assert.True(t, expiry.Equal(fixed.Add(7*24*time.Hour)))

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": "acc-1"})
	signed, err := noExpiry.SignedString(testSecret)
	require.NoError(t, err)

	_, err = issuer.ExpiryOf(signed)
	assert.ErrorIs(t, err, sec.ErrTokenMalformed)

	_, err = issuer.ExpiryOf("garbage")
	assert.ErrorIs(t, err, sec.ErrTokenMalformed)
}

/*
TestBcryptHasher verifies matching and mismatching passwords.
*/
func TestBcryptHasher(t *testing.T) {
	hasher := sec.NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hash)

	ok, err := hasher.Verify("secret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hasher.Verify("secret", "not-a-bcrypt-hash")
	assert.Error(t, err)
}

/*
TestGenerateSecureToken checks entropy floor and uniqueness.
*/
func TestGenerateSecureToken(t *testing.T) {
	short, err := sec.GenerateSecureToken(1)
	require.NoError(t, err)
	// 16 bytes -> 22 base64url characters without padding.
	assert.Len(t, short, 22)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := sec.GenerateSecureToken(32)
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}

	assert.Equal(t, sec.HashToken("abc"), sec.HashToken("abc"))
	assert.NotEqual(t, sec.HashToken("abc"), sec.HashToken("abd"))
	assert.Len(t, sec.HashToken("abc"), 64)
}
