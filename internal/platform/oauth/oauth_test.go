// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/oauth"
)

// providerServer fakes a token endpoint and a user-info endpoint.
func providerServer(t *testing.T, profile any) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(writer http.ResponseWriter, request *http.Request) {
		_ = request.ParseForm()
		if request.Form.Get("code") != "good-code" || request.Form.Get("client_secret") != "secret" {
			writer.WriteHeader(http.StatusBadRequest)
			_, _ = writer.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"access_token":"provider-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer provider-token" {
			writer.WriteHeader(http.StatusUnauthorized)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(profile)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func configFor(server *httptest.Server, mapper oauth.ProfileMapper) oauth.ProviderConfig {
	return oauth.ProviderConfig{
		Name:         "test",
		ClientID:     "client",
		ClientSecret: "secret",
		AuthURL:      server.URL + "/authorize",
		TokenURL:     server.URL + "/token",
		UserInfoURL:  server.URL + "/user",
		RedirectURL:  "http://localhost/auth/test/callback",
		Mapper:       mapper,
	}
}

/*
TestExchanger_GitHubFlow exchanges a code and maps a GitHub profile without email.
*/
func TestExchanger_GitHubFlow(t *testing.T) {
	server := providerServer(t, map[string]any{
		"id":         12345,
		"login":      "octo",
		"email":      nil,
		"name":       nil,
		"avatar_url": "https://avatars/octo.png",
	})
	config := configFor(server, oauth.GitHubMapper{})
	exchanger := oauth.NewExchanger(server.Client())

	token, err := exchanger.ExchangeCode(context.Background(), config, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "provider-token", token)

	profile, err := exchanger.FetchProfile(context.Background(), config, token)
	require.NoError(t, err)
	assert.Equal(t, "12345", profile.ExternalID)
	assert.Equal(t, "octo-12345@github.oauth.local", profile.Email)
	assert.True(t, oauth.IsPlaceholderEmail(profile.Email))
	require.NotNil(t, profile.Name)
	assert.Equal(t, "octo", *profile.Name)
	require.NotNil(t, profile.AvatarURL)
	assert.Equal(t, "https://avatars/octo.png", *profile.AvatarURL)
}

/*
TestExchanger_Failures maps provider rejections onto the package sentinels.
*/
func TestExchanger_Failures(t *testing.T) {
	server := providerServer(t, map[string]any{"id": "g-1"})
	config := configFor(server, oauth.GoogleMapper{})
	exchanger := oauth.NewExchanger(server.Client())

	_, err := exchanger.ExchangeCode(context.Background(), config, "bad-code")
	assert.ErrorIs(t, err, oauth.ErrExchangeFailed)

	_, err = exchanger.FetchProfile(context.Background(), config, "stolen-token")
	assert.ErrorIs(t, err, oauth.ErrProfileFailed)
}

/*
TestExchanger_AuthCodeURL carries client id, redirect and state.
*/
func TestExchanger_AuthCodeURL(t *testing.T) {
	config := oauth.GitHub("client", "secret", "https://api.example.com/")
	raw := oauth.NewExchanger(nil).AuthCodeURL(config, "state-xyz")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "github.com", parsed.Host)
	assert.Equal(t, "client", parsed.Query().Get("client_id"))
	assert.Equal(t, "state-xyz", parsed.Query().Get("state"))
	assert.Equal(t, "https://api.example.com/auth/github/callback", parsed.Query().Get("redirect_uri"))
}

/*
TestGoogleMapper covers the v2 and OIDC payload shapes and the email fallback.
*/
func TestGoogleMapper(t *testing.T) {
	profile, err := oauth.GoogleMapper{}.Normalize([]byte(`{"id":"g-1","email":"a@x.com","name":"Ann","picture":"p.png","verified_email":true}`))
	require.NoError(t, err)
	assert.Equal(t, "g-1", profile.ExternalID)
	assert.Equal(t, "a@x.com", profile.Email)
	assert.True(t, profile.EmailVerified)

	profile, err = oauth.GoogleMapper{}.Normalize([]byte(`{"sub":"g-2","name":"Zoë Lee"}`))
	require.NoError(t, err)
	assert.Equal(t, "g-2", profile.ExternalID)
	assert.Equal(t, "zoe-lee-g-2@google.oauth.local", profile.Email)
	assert.False(t, profile.EmailVerified)

	_, err = oauth.GoogleMapper{}.Normalize([]byte(`{"email":"a@x.com"}`))
	assert.ErrorIs(t, err, oauth.ErrIncompleteProfile)
}

/*
TestIsPlaceholderEmail matches the reserved domain and its subdomains only.
*/
func TestIsPlaceholderEmail(t *testing.T) {
	tests := []struct {
		email    string
		reserved bool
	}{
		{oauth.PlaceholderEmail(oauth.ProviderGoogle, "Vic", "7"), true},
		{"vic-7@google.oauth.local", true},
		{"vic@OAUTH.LOCAL", true},
		{"vic@github.oauth.local.", true},
		{"vic@notoauth.local", false},
		{"vic@oauth.local.example.com", false},
		{"victim@users.noreply.github.com", false},
		{"no-at-sign", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.reserved, oauth.IsPlaceholderEmail(tt.email))
		})
	}
}

/*
TestRegistry skips providers without credentials.
*/
func TestRegistry(t *testing.T) {
	registry := oauth.NewRegistry(
		oauth.Google("id", "secret", "https://api.example.com"),
		oauth.GitHub("", "", "https://api.example.com"),
	)

	_, ok := registry.Lookup(oauth.ProviderGoogle)
	assert.True(t, ok)
	_, ok = registry.Lookup(oauth.ProviderGitHub)
	assert.False(t, ok)
	assert.Equal(t, []string{"google"}, registry.Names())
}
