// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/yomira-auth/pkg/pointer"
	"github.com/taibuivan/yomira-auth/pkg/slug"
)

// ErrIncompleteProfile reports a user-info payload without a stable identifier.
var ErrIncompleteProfile = errors.New("oauth: profile is missing an external id")

// PlaceholderDomain hosts synthesized addresses for providers that withhold
// email. It is reserved: no password account may register under it.
const PlaceholderDomain = "oauth.local"

// Profile is the provider-neutral identity returned by a successful exchange.
type Profile struct {
	ExternalID    string
	Email         string
	Name          *string
	AvatarURL     *string
	EmailVerified bool
}

// ProfileMapper normalizes one provider's raw user-info response.
type ProfileMapper interface {
	Normalize(raw []byte) (*Profile, error)
}

// # Google

// GoogleMapper reads the userinfo v2 payload and its OpenID Connect variant.
type GoogleMapper struct{}

// Normalize implements [ProfileMapper].
func (GoogleMapper) Normalize(raw []byte) (*Profile, error) {
	var payload struct {
		ID            string `json:"id"`
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
		VerifiedEmail bool   `json:"verified_email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("oauth: failed to decode google profile: %w", err)
	}

	externalID := payload.ID
	if externalID == "" {
		externalID = payload.Subject
	}
	if externalID == "" {
		return nil, ErrIncompleteProfile
	}

	profile := &Profile{
		ExternalID:    externalID,
		Email:         strings.TrimSpace(payload.Email),
		Name:          optionalName(payload.Name),
		AvatarURL:     pointer.NonZero(payload.Picture),
		EmailVerified: payload.VerifiedEmail || payload.EmailVerified,
	}
	if profile.Email == "" {
		profile.Email = PlaceholderEmail(ProviderGoogle, payload.Name, externalID)
		profile.EmailVerified = false
	}

	return profile, nil
}

// # GitHub

// GitHubMapper reads the REST v3 /user payload.
//
// GitHub omits email for users with a private address; a reserved
// placeholder stands in for it.
type GitHubMapper struct{}

// Normalize implements [ProfileMapper].
func (GitHubMapper) Normalize(raw []byte) (*Profile, error) {
	var payload struct {
		ID        json.Number `json:"id"`
		Login     string      `json:"login"`
		Email     *string     `json:"email"`
		Name      *string     `json:"name"`
		AvatarURL string      `json:"avatar_url"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("oauth: failed to decode github profile: %w", err)
	}

	externalID := payload.ID.String()
	if externalID == "" {
		return nil, ErrIncompleteProfile
	}

	email := ""
	if payload.Email != nil {
		email = strings.TrimSpace(*payload.Email)
	}
	if email == "" {
		email = PlaceholderEmail(ProviderGitHub, payload.Login, externalID)
	}

	name := payload.Login
	if payload.Name != nil && strings.TrimSpace(*payload.Name) != "" {
		name = *payload.Name
	}

	return &Profile{
		ExternalID: externalID,
		Email:      email,
		Name:       optionalName(name),
		AvatarURL:  pointer.NonZero(payload.AvatarURL),
	}, nil
}

// # Helpers

/*
PlaceholderEmail synthesizes a deterministic address for a provider account
that exposes no email.

The same (provider, externalID) always yields the same address, so repeat
logins resolve to the same account.

Example:

	PlaceholderEmail("google", "Zoë Lee", "42") // "zoe-lee-42@google.oauth.local"
*/
func PlaceholderEmail(provider, name, externalID string) string {
	local := slug.From(name)
	if local == "" {
		local = "user"
	}
	return fmt.Sprintf("%s-%s@%s.%s", local, slug.From(externalID), provider, PlaceholderDomain)
}

// IsPlaceholderEmail reports whether email sits under [PlaceholderDomain] or
// one of its subdomains.
func IsPlaceholderEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := strings.ToLower(strings.TrimSuffix(email[at+1:], "."))
	return domain == PlaceholderDomain || strings.HasSuffix(domain, "."+PlaceholderDomain)
}

// optionalName returns the NFC-normalized, trimmed name or nil when blank.
func optionalName(value string) *string {
	return pointer.NonZero(norm.NFC.String(strings.TrimSpace(value)))
}
