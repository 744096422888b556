// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package oauth implements the external identity exchange with third-party
OAuth 2.0 providers.

It owns everything that speaks a provider's wire format: the authorize URL,
the code-for-token exchange and the user-info fetch. The result is a
provider-neutral [Profile]. No account linking or session decisions are
made here.

Architecture:

  - ProviderConfig: immutable endpoints and credentials for one provider.
  - Registry: lookup of the configured providers by name.
  - ProfileMapper: one variant per provider that normalizes its user-info payload.
  - Exchanger: the HTTP client built on golang.org/x/oauth2.
*/
package oauth

import (
	"sort"
	"strings"

	"golang.org/x/oauth2"
)

// # Provider Names

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// # Provider Configuration

// ProviderConfig describes one OAuth provider.
type ProviderConfig struct {
	// Name is the provider tag persisted on identity links (e.g. "google").
	Name string

	ClientID     string
	ClientSecret string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	RedirectURL string
	Scopes      []string

	// Mapper normalizes the provider's user-info payload.
	Mapper ProfileMapper
}

// Enabled reports whether the provider carries the credentials required to run.
func (config ProviderConfig) Enabled() bool {
	return config.ClientID != "" && config.ClientSecret != "" && config.RedirectURL != ""
}

// oauth2Config converts the configuration into the x/oauth2 representation.
//
// Credentials are sent in the request body, which both supported providers accept.
func (config ProviderConfig) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       config.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   config.AuthURL,
			TokenURL:  config.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

/*
Google returns the configuration for Google sign-in.

Parameters:
  - clientID, clientSecret: string (OAuth client credentials)
  - redirectBaseURL: string (public base URL; the callback path is appended)

Returns:
  - ProviderConfig: Ready-to-register configuration
*/
func Google(clientID, clientSecret, redirectBaseURL string) ProviderConfig {
	return ProviderConfig{
		Name:         ProviderGoogle,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		UserInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
		RedirectURL:  callbackURL(redirectBaseURL, ProviderGoogle),
		Scopes:       []string{"openid", "email", "profile"},
		Mapper:       GoogleMapper{},
	}
}

// GitHub returns the configuration for GitHub sign-in.
func GitHub(clientID, clientSecret, redirectBaseURL string) ProviderConfig {
	return ProviderConfig{
		Name:         ProviderGitHub,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://github.com/login/oauth/authorize",
		TokenURL:     "https://github.com/login/oauth/access_token",
		UserInfoURL:  "https://api.github.com/user",
		RedirectURL:  callbackURL(redirectBaseURL, ProviderGitHub),
		Scopes:       []string{"read:user", "user:email"},
		Mapper:       GitHubMapper{},
	}
}

func callbackURL(baseURL, provider string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/auth/" + provider + "/callback"
}

// # Registry

// Registry holds the enabled providers and allows lookup by name.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	providers map[string]ProviderConfig
}

// NewRegistry registers every enabled provider by name. Providers missing
// credentials are skipped so a deployment can enable them one at a time.
func NewRegistry(configs ...ProviderConfig) *Registry {
	providers := make(map[string]ProviderConfig, len(configs))
	for _, config := range configs {
		if config.Enabled() {
			providers[config.Name] = config
		}
	}
	return &Registry{providers: providers}
}

// Lookup returns the provider registered under name.
func (registry *Registry) Lookup(name string) (ProviderConfig, bool) {
	config, ok := registry.providers[name]
	return config, ok
}

// Names lists the registered providers in lexical order.
func (registry *Registry) Names() []string {
	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
