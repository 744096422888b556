// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the credential and session lifecycle of the platform.

It authenticates accounts, issues and rotates bearer tokens, keeps the
server-side session records, and runs the password reset and external
identity (OAuth) flows.

Architecture:

  - Service: Orchestrates the flows over the stores and collaborators below.
  - Stores: Credentials, sessions, reset tokens and identity links, each behind
    an interface with a Postgres and an in-memory implementation.
  - Collaborators: Token issuer, password hasher, identity exchanger, notifier.

Every error leaving [Service] is an [apperr.AppError]. Security-sensitive
failures carry a generic message; their causes are only logged.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/oauth"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/platform/validate"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// # Contracts & Types

// Dependencies are the stores and collaborators a [Service] coordinates.
type Dependencies struct {
	Transactor    Transactor
	Accounts      account.Repository
	Credentials   CredentialStore
	Sessions      SessionStore
	ResetTokens   ResetTokenStore
	IdentityLinks IdentityLinkStore

	Tokens    TokenIssuer
	Hasher    PasswordHasher
	Exchanger IdentityExchanger
	Providers ProviderLookup
	Notifier  Notifier
}

// Settings are the immutable knobs of a [Service].
type Settings struct {
	// ResetTokenTTL is how long a password reset link stays usable.
	ResetTokenTTL time.Duration

	// FrontendURL is the origin the reset link points to.
	FrontendURL string

	// Deadlines for each collaborator class. Zero means no extra bound.
	StoreTimeout    time.Duration
	HashTimeout     time.Duration
	ExchangeTimeout time.Duration
	NotifyTimeout   time.Duration

	// Now overrides the wall clock. Nil means time.Now.
	Now func() time.Time
}

// Service implements the authentication use cases.
//
// It is safe for concurrent use; all shared state lives in the stores.
type Service struct {
	deps     Dependencies
	settings Settings
	logger   *slog.Logger

	// decoyHash is verified against when no credential exists, so every
	// login attempt pays one hash comparison.
	decoyHash func() (string, error)

	// background tracks reset emails still being delivered.
	background sync.WaitGroup
}

// NewService constructs a new [Service].
func NewService(deps Dependencies, settings Settings, logger *slog.Logger) *Service {
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.ResetTokenTTL <= 0 {
		settings.ResetTokenTTL = time.Hour
	}
	return &Service{
		deps:      deps,
		settings:  settings,
		logger:    logger,
		decoyHash: sync.OnceValues(func() (string, error) { return deps.Hasher.Hash(decoyPassword) }),
	}
}

// Wait blocks until every background reset email has been handed off or
// abandoned. Call it after the HTTP server stops accepting requests.
func (service *Service) Wait() {
	service.background.Wait()
}

// decoyPassword seeds the hash compared on logins without a credential.
const decoyPassword = "yomira-auth-decoy-password"

// errSessionGone aborts a rotation whose session was consumed concurrently.
var errSessionGone = errors.New("auth: session already consumed")

// # Registration Flow

// RegisterInput holds the data required to enroll a new password account.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName *string
}

/*
Register creates an account and its password credential atomically.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - *account.Account: Created account
  - error: apperr.ValidationError for bad input or a reserved placeholder
    address, apperr.Conflict when the email is taken
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*account.Account, error) {
	input.Email = normalizeEmail(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	// Placeholder addresses are reserved for provider identities.
	validator.Custom(FieldEmail, oauth.IsPlaceholderEmail(input.Email), "This address is reserved")
	validatePassword(validator, FieldPassword, input.Password)
	if input.DisplayName != nil {
		validator.MaxLen(FieldName, *input.DisplayName, account.DisplayNameMaxLength)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Hash outside the transaction so the CPU work holds no locks.
	passwordHash, err := bounded(ctx, service.settings.HashTimeout, func() (string, error) {
		return service.deps.Hasher.Hash(input.Password)
	})
	if err != nil {
		return nil, service.failure(ctx, "auth_register_hash_failed", err)
	}

	now := service.settings.Now()
	created := account.New(account.NewAccountInput{Email: input.Email, DisplayName: input.DisplayName}, now)

	storeCtx, cancel := withTimeout(ctx, service.settings.StoreTimeout)
	defer cancel()

	err = service.deps.Transactor.WithinTx(storeCtx, func(ctx context.Context) error {
		existing, err := service.deps.Accounts.FindByEmail(ctx, input.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("Email is already registered")
		}

		if err := service.deps.Accounts.Create(ctx, created); err != nil {
			return err
		}

		return service.deps.Credentials.Create(ctx, &Credential{
			AccountID:    created.ID,
			PasswordHash: passwordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	})

	switch {
	case err == nil:
	case errors.Is(err, dberr.ErrDuplicate), errors.Is(err, dberr.ErrTxConflict):
		// A concurrent registration of the same email won the race.
		return nil, apperr.Conflict("Email is already registered")
	default:
		return nil, service.failure(ctx, "auth_register_failed", err)
	}

	service.logger.InfoContext(ctx, "auth_account_registered", slog.String("account_id", created.ID))

	return created, nil
}

// # Login Flow

// LoginInput holds the password login request.
type LoginInput struct {
	Email    string
	Password string
	Client   ClientMeta
}

/*
Login verifies a password and starts a session.

Description: An unknown email, an account without a password credential,
and a wrong password all yield the same InvalidCredentials failure. No
session is created unless every check passes.

Parameters:
  - ctx: context.Context
  - input: LoginInput

Returns:
  - *Result: Token pair and account projection
  - error: apperr.InvalidCredentials, apperr.Timeout or apperr.Internal
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*Result, error) {
	input.Email = normalizeEmail(input.Email)

	lookupCtx, cancelLookup := withTimeout(ctx, service.settings.StoreTimeout)
	defer cancelLookup()

	// 1. Resolve the account
	found, err := service.deps.Accounts.FindByEmail(lookupCtx, input.Email)
	if err != nil {
		return nil, service.failure(ctx, "auth_login_lookup_failed", err)
	}
	if found == nil {
		service.burnHash(ctx, input.Password)
		service.reject(ctx, "auth_login_rejected", "unknown_email")
		return nil, apperr.InvalidCredentials()
	}

	// 2. Resolve the credential
	credential, err := service.deps.Credentials.Find(lookupCtx, found.ID)
	if err != nil {
		return nil, service.failure(ctx, "auth_login_lookup_failed", err)
	}
	if credential == nil {
		service.burnHash(ctx, input.Password)
		service.reject(ctx, "auth_login_rejected", "no_password_credential", slog.String("account_id", found.ID))
		return nil, apperr.InvalidCredentials()
	}

	// 3. Verify the password in constant time
	matches, err := bounded(ctx, service.settings.HashTimeout, func() (bool, error) {
		return service.deps.Hasher.Verify(input.Password, credential.PasswordHash)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Timeout(err)
		}
		service.logger.ErrorContext(ctx, "auth_login_hash_unreadable",
			slog.String("account_id", found.ID),
			slog.Any("error", err),
		)
		return nil, apperr.InvalidCredentials()
	}
	if !matches {
		service.reject(ctx, "auth_login_rejected", "password_mismatch", slog.String("account_id", found.ID))
		return nil, apperr.InvalidCredentials()
	}

	// 4. Start the session
	result, session, err := service.mint(found, input.Client)
	if err != nil {
		return nil, service.failure(ctx, "auth_login_issue_failed", err)
	}
	sessionCtx, cancelSession := withTimeout(ctx, service.settings.StoreTimeout)
	defer cancelSession()

	if err := service.deps.Sessions.Create(sessionCtx, session); err != nil {
		return nil, service.failure(ctx, "auth_login_session_failed", err)
	}

	service.logger.InfoContext(ctx, "auth_login_succeeded",
		slog.String("account_id", found.ID),
		slog.String("session_id", session.ID),
	)

	return result, nil
}

// # Logout Flow

/*
Logout deletes the session behind a refresh token.

Description: The token is looked up by value only; its signature is not
checked, so a token past its cryptographic expiry can still be revoked.

Parameters:
  - ctx: context.Context
  - refreshToken: string

Returns:
  - error: apperr.Unauthorized when no session matches
*/
func (service *Service) Logout(ctx context.Context, refreshToken string) error {
	storeCtx, cancel := withTimeout(ctx, service.settings.StoreTimeout)
	defer cancel()

	session, err := service.deps.Sessions.FindByTokenHash(storeCtx, sec.HashToken(refreshToken))
	if err != nil {
		return service.failure(ctx, "auth_logout_lookup_failed", err)
	}
	if session == nil {
		return apperr.Unauthorized("Invalid or expired session")
	}

	deleted, err := service.deps.Sessions.Delete(storeCtx, session.ID)
	if err != nil {
		return service.failure(ctx, "auth_logout_delete_failed", err)
	}
	if !deleted {
		return apperr.Unauthorized("Invalid or expired session")
	}

	service.logger.InfoContext(ctx, "auth_logout_succeeded",
		slog.String("account_id", session.AccountID),
		slog.String("session_id", session.ID),
	)

	return nil
}

// # Refresh Flow

/*
Refresh rotates a refresh token.

Description: The presented token must verify as a refresh token and still
be backed by a live session. The old session is deleted and the new one
created in one transaction; the delete is conditional, so of two concurrent
refreshes with the same token exactly one succeeds.

Parameters:
  - ctx: context.Context
  - refreshToken: string
  - client: ClientMeta (recorded on the new session)

Returns:
  - *Result: New token pair and account projection
  - error: apperr.Unauthorized for every token or session problem
*/
func (service *Service) Refresh(ctx context.Context, refreshToken string, client ClientMeta) (*Result, error) {
	storeCtx, cancel := withTimeout(ctx, service.settings.StoreTimeout)
	defer cancel()

	tokenHash := sec.HashToken(refreshToken)

	// 1. Verify signature, expiry and kind
	claims, err := service.deps.Tokens.VerifyKind(refreshToken, sec.KindRefresh)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			service.dropSessionByHash(storeCtx, tokenHash)
		}
		service.reject(ctx, "auth_refresh_rejected", "token_unverifiable", slog.Any("error", err))
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	// 2. Require a live session
	session, err := service.deps.Sessions.FindByTokenHash(storeCtx, tokenHash)
	if err != nil {
		return nil, service.failure(ctx, "auth_refresh_lookup_failed", err)
	}
	if session == nil {
		service.reject(ctx, "auth_refresh_rejected", "session_absent", slog.String("account_id", claims.AccountID))
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	if session.Expired(service.settings.Now()) {
		if _, err := service.deps.Sessions.Delete(storeCtx, session.ID); err != nil {
			service.logger.WarnContext(ctx, "auth_refresh_cleanup_failed", slog.Any("error", err))
		}
		service.reject(ctx, "auth_refresh_rejected", "session_expired", slog.String("session_id", session.ID))
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	if session.AccountID != claims.AccountID {
		service.reject(ctx, "auth_refresh_rejected", "account_mismatch", slog.String("session_id", session.ID))
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	// 3. Reload the account for the projection
	owner, err := service.deps.Accounts.FindByID(storeCtx, session.AccountID)
	if err != nil {
		return nil, service.failure(ctx, "auth_refresh_lookup_failed", err)
	}
	if owner == nil {
		service.reject(ctx, "auth_refresh_rejected", "account_absent", slog.String("account_id", session.AccountID))
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	// 4. Rotate
	result, next, err := service.mint(owner, client)
	if err != nil {
		return nil, service.failure(ctx, "auth_refresh_issue_failed", err)
	}

	err = service.deps.Transactor.WithinTx(storeCtx, func(ctx context.Context) error {
		deleted, err := service.deps.Sessions.Delete(ctx, session.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return errSessionGone
		}
		return service.deps.Sessions.Create(ctx, next)
	})

	switch {
	case err == nil:
	case errors.Is(err, errSessionGone), errors.Is(err, dberr.ErrTxConflict):
		service.reject(ctx, "auth_refresh_rejected", "session_consumed", slog.String("session_id", session.ID))
		return nil, apperr.Unauthorized("Invalid or expired session")
	default:
		return nil, service.failure(ctx, "auth_refresh_rotate_failed", err)
	}

	service.logger.InfoContext(ctx, "auth_session_rotated",
		slog.String("account_id", owner.ID),
		slog.String("previous_session_id", session.ID),
		slog.String("session_id", next.ID),
	)

	return result, nil
}

// dropSessionByHash removes the session of a cryptographically expired token, best-effort.
func (service *Service) dropSessionByHash(ctx context.Context, tokenHash string) {
	session, err := service.deps.Sessions.FindByTokenHash(ctx, tokenHash)
	if err != nil || session == nil {
		return
	}
	if _, err := service.deps.Sessions.Delete(ctx, session.ID); err != nil {
		service.logger.WarnContext(ctx, "auth_refresh_cleanup_failed", slog.Any("error", err))
	}
}

// # Session Minting

// mint issues a token pair for owner and builds the unsaved session backing it.
func (service *Service) mint(owner *account.Account, client ClientMeta) (*Result, *Session, error) {
	accessToken, err := service.deps.Tokens.IssueAccessToken(owner.ID, owner.Email)
	if err != nil {
		return nil, nil, err
	}

	refreshToken, err := service.deps.Tokens.IssueRefreshToken(owner.ID, owner.Email)
	if err != nil {
		return nil, nil, err
	}

	expiresAt, err := service.deps.Tokens.ExpiryOf(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	session := &Session{
		ID:        uuid.New(),
		AccountID: owner.ID,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		ExpiresAt: expiresAt,
		CreatedAt: service.settings.Now(),
	}

	result := &Result{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		Account: AccountView{
			ID:          owner.ID,
			Email:       owner.Email,
			DisplayName: owner.DisplayName,
		},
	}

	return result, session, nil
}

// # Failure Mapping

// failure converts an unexpected error into an AppError and logs its cause.
func (service *Service) failure(ctx context.Context, event string, err error) error {
	if appError := apperr.As(err); appError != nil {
		return appError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		service.logger.WarnContext(ctx, event, slog.String("reason", "timeout"), slog.Any("error", err))
		return apperr.Timeout(err)
	}

	service.logger.ErrorContext(ctx, event, slog.Any("error", err))
	return apperr.Internal(err)
}

// reject logs a refused security check at Warn without exposing it to the caller.
func (service *Service) reject(ctx context.Context, event, reason string, attributes ...any) {
	service.logger.WarnContext(ctx, event, append([]any{slog.String("reason", reason)}, attributes...)...)
}

// # Input Rules

// burnHash runs a throwaway comparison so a rejection without a credential
// takes as long as a wrong password.
func (service *Service) burnHash(ctx context.Context, password string) {
	_, _ = bounded(ctx, service.settings.HashTimeout, func() (bool, error) {
		hash, err := service.decoyHash()
		if err != nil {
			return false, err
		}
		return service.deps.Hasher.Verify(password, hash)
	})
}

// normalizeEmail trims surrounding blanks. Addresses compare case-sensitively as stored.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// validatePassword applies the length policy to a new password.
func validatePassword(validator *validate.Validator, field, password string) {
	validator.Required(field, password).
		MinLen(field, password, PasswordMinLength).
		MaxBytes(field, password, PasswordMaxLength)
}

// # Deadlines

// withTimeout bounds ctx by timeout; a non-positive timeout only adds cancellation.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// bounded runs a call that takes no context and gives up once timeout elapses.
// The abandoned call finishes in the background and its result is dropped.
func bounded[T any](ctx context.Context, timeout time.Duration, call func() (T, error)) (T, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		value, err := call()
		done <- outcome{value: value, err: err}
	}()

	select {
	case result := <-done:
		return result.value, result.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("auth: call abandoned: %w", ctx.Err())
	}
}
