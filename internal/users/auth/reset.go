// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/mailer"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/platform/validate"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/pkg/pointer"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// # Password Recovery

/*
RequestPasswordReset mails a single-use reset link to a registered email.

Description: The caller observes the same outcome whether or not the email
is registered. The grant is stored before returning; delivery runs in the
background so the response time does not depend on the mail relay.
Failures after the account lookup are logged and swallowed, and a stored
grant stays valid even when the email never arrives.

Parameters:
  - ctx: context.Context
  - email: string

Returns:
  - error: Only when the account lookup itself fails
*/
func (service *Service) RequestPasswordReset(ctx context.Context, email string) error {
	storeCtx, cancel := withTimeout(ctx, service.settings.StoreTimeout)
	defer cancel()

	owner, err := service.deps.Accounts.FindByEmail(storeCtx, normalizeEmail(email))
	if err != nil {
		return service.failure(ctx, "auth_reset_lookup_failed", err)
	}
	if owner == nil {
		service.logger.InfoContext(ctx, "auth_reset_unknown_email")
		return nil
	}

	grant, message, err := service.issueResetGrant(ctx, owner)
	if err != nil {
		service.logger.ErrorContext(ctx, "auth_reset_grant_failed",
			slog.String("account_id", owner.ID),
			slog.Any("error", err),
		)
		return nil
	}

	// Delivery outlives the request and is awaited by Wait on shutdown.
	deliveryCtx := context.WithoutCancel(ctx)
	service.background.Add(1)
	go func() {
		defer service.background.Done()
		service.deliverResetEmail(deliveryCtx, grant, message)
	}()

	return nil
}

// issueResetGrant persists a fresh grant for owner and renders its email.
func (service *Service) issueResetGrant(ctx context.Context, owner *account.Account) (*ResetToken, mailer.Message, error) {
	rawToken, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return nil, mailer.Message{}, err
	}

	now := service.settings.Now()
	grant := &ResetToken{
		ID:        uuid.New(),
		AccountID: owner.ID,
		TokenHash: sec.HashToken(rawToken),
		ExpiresAt: now.Add(service.settings.ResetTokenTTL),
		CreatedAt: now,
	}

	message, err := mailer.PasswordResetMessage(owner.Email, mailer.PasswordResetData{
		Name:      pointer.Val(owner.DisplayName),
		Link:      service.resetLink(rawToken),
		ExpiresIn: service.settings.ResetTokenTTL,
	})
	if err != nil {
		return nil, mailer.Message{}, err
	}

	storeCtx, cancel := withTimeout(ctx, service.settings.StoreTimeout)
	defer cancel()

	if err := service.deps.ResetTokens.Create(storeCtx, grant); err != nil {
		return nil, mailer.Message{}, err
	}

	return grant, message, nil
}

// deliverResetEmail sends message under the notify deadline and logs the outcome.
func (service *Service) deliverResetEmail(ctx context.Context, grant *ResetToken, message mailer.Message) {
	notifyCtx, cancel := withTimeout(ctx, service.settings.NotifyTimeout)
	defer cancel()

	if err := service.deps.Notifier.Send(notifyCtx, message); err != nil {
		service.logger.ErrorContext(ctx, "auth_reset_email_failed",
			slog.String("account_id", grant.AccountID),
			slog.String("reset_token_id", grant.ID),
			slog.Any("error", err),
		)
		return
	}

	service.logger.InfoContext(ctx, "auth_reset_email_sent",
		slog.String("account_id", grant.AccountID),
		slog.String("reset_token_id", grant.ID),
	)
}

// resetLink embeds the raw token into the frontend reset page URL.
func (service *Service) resetLink(rawToken string) string {
	base := strings.TrimRight(service.settings.FrontendURL, "/")
	return base + constants.ResetPasswordPath + "?token=" + url.QueryEscape(rawToken)
}

/*
ResetPassword consumes a reset grant and replaces the account password.

Description: The grant is marked used in its own write before the password
changes, so a grant never works twice even when the later write fails. The
marking is conditional: of two concurrent resets with the same grant exactly
one proceeds. The new hash and the revocation of every session then commit
together.

Parameters:
  - ctx: context.Context
  - rawToken: string
  - newPassword: string

Returns:
  - error: apperr.ValidationError for a weak password, apperr.Unauthorized
    for a missing, used or expired grant, apperr.NotFound when the account
    has no credential
*/
func (service *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	validator := &validate.Validator{}
	validator.Required(FieldToken, rawToken)
	validatePassword(validator, FieldPassword, newPassword)
	if err := validator.Err(); err != nil {
		return err
	}

	// A token we could never have issued needs no lookup
	if (&validate.Validator{}).OpaqueToken(FieldToken, rawToken).HasErrors() {
		service.reject(ctx, "auth_reset_rejected", "malformed_token")
		return apperr.Unauthorized("Invalid or expired reset token")
	}

	lookupCtx, cancelLookup := withTimeout(ctx, service.settings.StoreTimeout)
	defer cancelLookup()

	// 1. Resolve the grant and its credential
	grant, err := service.deps.ResetTokens.FindByTokenHash(lookupCtx, sec.HashToken(rawToken))
	if err != nil {
		return service.failure(ctx, "auth_reset_lookup_failed", err)
	}
	if grant == nil || !grant.Usable(service.settings.Now()) {
		service.reject(ctx, "auth_reset_rejected", "grant_unusable")
		return apperr.Unauthorized("Invalid or expired reset token")
	}

	credential, err := service.deps.Credentials.Find(lookupCtx, grant.AccountID)
	if err != nil {
		return service.failure(ctx, "auth_reset_lookup_failed", err)
	}
	if credential == nil {
		service.logger.ErrorContext(ctx, "auth_reset_credential_missing", slog.String("account_id", grant.AccountID))
		return apperr.NotFound("Credential")
	}

	// 2. Consume the grant
	marked, err := service.deps.ResetTokens.MarkUsed(lookupCtx, grant.ID)
	if err != nil {
		return service.failure(ctx, "auth_reset_consume_failed", err)
	}
	if !marked {
		service.reject(ctx, "auth_reset_rejected", "grant_consumed", slog.String("reset_token_id", grant.ID))
		return apperr.Unauthorized("Invalid or expired reset token")
	}

	// From here on a failure leaves the grant spent; the user requests a new one
	stranded := func(err error) error {
		service.logger.WarnContext(ctx, "auth_reset_stranded",
			slog.String("account_id", grant.AccountID),
			slog.String("reset_token_id", grant.ID),
		)
		return service.failure(ctx, "auth_reset_failed", err)
	}

	// 3. Hash the new password
	passwordHash, err := bounded(ctx, service.settings.HashTimeout, func() (string, error) {
		return service.deps.Hasher.Hash(newPassword)
	})
	if err != nil {
		return stranded(err)
	}

	// 4. Replace and revoke under a deadline that starts after hashing
	writeCtx, cancelWrite := withTimeout(ctx, service.settings.StoreTimeout)
	defer cancelWrite()

	var revoked int64
	err = service.deps.Transactor.WithinTx(writeCtx, func(ctx context.Context) error {
		replaced, err := service.deps.Credentials.ReplaceHash(ctx, grant.AccountID, passwordHash, service.settings.Now())
		if err != nil {
			return err
		}
		if !replaced {
			return apperr.NotFound("Credential")
		}

		revoked, err = service.deps.Sessions.DeleteAllFor(ctx, grant.AccountID)
		return err
	})
	if err != nil {
		return stranded(err)
	}

	service.logger.InfoContext(ctx, "auth_password_reset",
		slog.String("account_id", grant.AccountID),
		slog.Int64("sessions_revoked", revoked),
	)

	return nil
}
