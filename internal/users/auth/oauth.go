// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/oauth"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// resolveAttempts bounds how often account resolution is retried after
// losing a race with a concurrent first login of the same identity.
const resolveAttempts = 2

// # External Identity

/*
OAuthAuthorizeURL returns the provider consent URL for a login attempt.

Parameters:
  - provider: string (e.g. "google")
  - state: string (anti-forgery value echoed back on the callback)

Returns:
  - string: Absolute consent URL
  - error: apperr.ValidationError for an unknown or disabled provider
*/
func (service *Service) OAuthAuthorizeURL(provider, state string) (string, error) {
	config, ok := service.deps.Providers.Lookup(provider)
	if !ok {
		return "", apperr.ValidationError("Unknown identity provider")
	}
	return service.deps.Exchanger.AuthCodeURL(config, state), nil
}

// OAuthInput holds a provider callback.
type OAuthInput struct {
	Provider string
	Code     string
	Client   ClientMeta
}

/*
OAuthCallback completes an external login and starts a session.

Description: The code is exchanged and the profile fetched under the
exchange deadline. Account resolution then runs as one transaction: an
existing link refreshes its cached provider token; otherwise the account
with the profile email is reused, or created, and a new link is stored.

Parameters:
  - ctx: context.Context
  - input: OAuthInput

Returns:
  - *Result: Token pair and account projection
  - error: apperr.ExternalAuth when the provider refuses, apperr.Timeout on deadline
*/
func (service *Service) OAuthCallback(ctx context.Context, input OAuthInput) (*Result, error) {
	config, ok := service.deps.Providers.Lookup(input.Provider)
	if !ok {
		return nil, apperr.ValidationError("Unknown identity provider")
	}

	// 1. Talk to the provider
	accessToken, profile, err := service.exchange(ctx, config, input.Code)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			service.logger.WarnContext(ctx, "auth_oauth_exchange_timeout", slog.String("provider", config.Name))
			return nil, apperr.Timeout(err)
		}
		service.logger.WarnContext(ctx, "auth_oauth_exchange_failed",
			slog.String("provider", config.Name),
			slog.Any("error", err),
		)
		return nil, apperr.ExternalAuth(err)
	}

	// 2. Resolve or create the local identity
	var owner *account.Account
	for attempt := 1; attempt <= resolveAttempts; attempt++ {
		owner, err = service.resolveIdentity(ctx, Provider(config.Name), profile, accessToken)
		if err == nil || attempt == resolveAttempts {
			break
		}
		if !errors.Is(err, dberr.ErrDuplicate) && !errors.Is(err, dberr.ErrTxConflict) {
			break
		}
		service.logger.InfoContext(ctx, "auth_oauth_resolve_retry", slog.String("provider", config.Name))
	}
	if err != nil {
		return nil, service.failure(ctx, "auth_oauth_resolve_failed", err)
	}

	// 3. Start the session
	result, session, err := service.mint(owner, input.Client)
	if err != nil {
		return nil, service.failure(ctx, "auth_oauth_issue_failed", err)
	}

	storeCtx, cancel := withTimeout(ctx, service.settings.StoreTimeout)
	defer cancel()

	if err := service.deps.Sessions.Create(storeCtx, session); err != nil {
		return nil, service.failure(ctx, "auth_oauth_session_failed", err)
	}

	service.logger.InfoContext(ctx, "auth_oauth_login_succeeded",
		slog.String("provider", config.Name),
		slog.String("account_id", owner.ID),
		slog.String("session_id", session.ID),
	)

	return result, nil
}

// exchange trades the code for a provider token and the normalized profile.
func (service *Service) exchange(ctx context.Context, config oauth.ProviderConfig, code string) (string, *oauth.Profile, error) {
	exchangeCtx, cancel := withTimeout(ctx, service.settings.ExchangeTimeout)
	defer cancel()

	accessToken, err := service.deps.Exchanger.ExchangeCode(exchangeCtx, config, code)
	if err != nil {
		return "", nil, err
	}

	profile, err := service.deps.Exchanger.FetchProfile(exchangeCtx, config, accessToken)
	if err != nil {
		return "", nil, err
	}

	return accessToken, profile, nil
}

// resolveIdentity maps an external profile onto an account in one transaction.
func (service *Service) resolveIdentity(ctx context.Context, provider Provider, profile *oauth.Profile, accessToken string) (*account.Account, error) {
	storeCtx, cancel := withTimeout(ctx, service.settings.StoreTimeout)
	defer cancel()

	var owner *account.Account
	err := service.deps.Transactor.WithinTx(storeCtx, func(ctx context.Context) error {
		now := service.settings.Now()

		link, err := service.deps.IdentityLinks.FindByProviderAndExternalID(ctx, provider, profile.ExternalID)
		if err != nil {
			return err
		}

		// Returning identity: refresh the cached provider token
		if link != nil {
			owner, err = service.deps.Accounts.FindByID(ctx, link.AccountID)
			if err != nil {
				return err
			}
			if owner == nil {
				return apperr.Internal(errors.New("auth: identity link points to a missing account"))
			}
			return service.deps.IdentityLinks.ReplaceAccessToken(ctx, link.ID, &accessToken, now)
		}

		// New identity: reuse the account owning the email, or create one
		email := normalizeEmail(profile.Email)
		owner, err = service.deps.Accounts.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if owner == nil {
			owner = account.New(account.NewAccountInput{
				Email:         email,
				DisplayName:   profile.Name,
				AvatarRef:     profile.AvatarURL,
				EmailVerified: profile.EmailVerified,
			}, now)
			if err := service.deps.Accounts.Create(ctx, owner); err != nil {
				return err
			}
		}

		return service.deps.IdentityLinks.Create(ctx, &IdentityLink{
			ID:          uuid.New(),
			AccountID:   owner.ID,
			Provider:    provider,
			ExternalID:  profile.ExternalID,
			AccessToken: &accessToken,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	return owner, nil
}
