// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// maxProfileBytes caps the user-info body read from a provider.
const maxProfileBytes = 1 << 20

var (
	// ErrExchangeFailed reports a rejected or unreadable token response.
	ErrExchangeFailed = errors.New("oauth: code exchange failed")

	// ErrProfileFailed reports a non-success user-info response.
	ErrProfileFailed = errors.New("oauth: profile fetch failed")
)

// Exchanger talks to provider token and user-info endpoints.
type Exchanger struct {
	httpClient *http.Client
}

// NewExchanger returns an exchanger that sends every provider call through
// httpClient. A nil client gets a default with a 10s timeout.
func NewExchanger(httpClient *http.Client) *Exchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Exchanger{httpClient: httpClient}
}

// AuthCodeURL returns the provider consent URL carrying state.
func (exchanger *Exchanger) AuthCodeURL(config ProviderConfig, state string) string {
	return config.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOnline)
}

/*
ExchangeCode trades an authorization code for a provider access token.

Parameters:
  - ctx: context.Context (bounds the HTTP round trip)
  - config: ProviderConfig
  - code: string (authorization code from the callback)

Returns:
  - string: Provider access token
  - error: [ErrExchangeFailed] wrapping the provider's response
*/
func (exchanger *Exchanger) ExchangeCode(ctx context.Context, config ProviderConfig, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, exchanger.httpClient)

	token, err := config.oauth2Config().Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExchangeFailed, config.Name, err)
	}

	// GitHub answers HTTP 200 with an error body for bad codes.
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: %s: empty access token", ErrExchangeFailed, config.Name)
	}

	return token.AccessToken, nil
}

/*
FetchProfile reads the user-info endpoint with accessToken and normalizes it
through the provider's [ProfileMapper].

Parameters:
  - ctx: context.Context
  - config: ProviderConfig
  - accessToken: string

Returns:
  - *Profile: Normalized identity
  - error: [ErrProfileFailed], [ErrIncompleteProfile], or transport errors
*/
func (exchanger *Exchanger) FetchProfile(ctx context.Context, config ProviderConfig, accessToken string) (*Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, exchanger.httpClient)
	client := config.oauth2Config().Client(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("oauth: failed to build profile request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProfileFailed, config.Name, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxProfileBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProfileFailed, config.Name, err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrProfileFailed, config.Name, response.StatusCode)
	}

	if config.Mapper == nil {
		return nil, fmt.Errorf("oauth: provider %s has no profile mapper", config.Name)
	}

	return config.Mapper.Normalize(body)
}
