// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/postgres"
)

// # Credential Repository

// PostgresCredentialRepository implements [CredentialStore] on users.credential.
type PostgresCredentialRepository struct {
	db postgres.Querier
}

// NewCredentialRepository creates a PostgreSQL implementation of [CredentialStore].
func NewCredentialRepository(db postgres.Querier) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{db: db}
}

// Find returns the credential row of an account, or nil.
func (repository *PostgresCredentialRepository) Find(context context.Context, accountID string) (*Credential, error) {
	const query = `
		SELECT accountid, passwordhash, createdat, updatedat
		FROM users.credential
		WHERE accountid = $1`

	credential := &Credential{}
	err := postgres.Conn(context, repository.db).QueryRow(context, query, accountID).Scan(
		&credential.AccountID,
		&credential.PasswordHash,
		&credential.CreatedAt,
		&credential.UpdatedAt,
	)
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_credential_repo_find_failed: %w", err)
	}

	return credential, nil
}

// Create inserts the first credential of an account.
func (repository *PostgresCredentialRepository) Create(context context.Context, credential *Credential) error {
	const query = `
		INSERT INTO users.credential (accountid, passwordhash, createdat, updatedat)
		VALUES ($1, $2, $3, $4)`

	_, err := postgres.Conn(context, repository.db).Exec(context, query,
		credential.AccountID,
		credential.PasswordHash,
		credential.CreatedAt,
		credential.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_credential_repo_create_failed: %w", dberr.Classify(err))
	}

	return nil
}

// ReplaceHash overwrites the password hash and reports whether a row matched.
func (repository *PostgresCredentialRepository) ReplaceHash(context context.Context, accountID, passwordHash string, updatedAt time.Time) (bool, error) {
	const query = `
		UPDATE users.credential
		SET passwordhash = $2, updatedat = $3
		WHERE accountid = $1`

	tag, err := postgres.Conn(context, repository.db).Exec(context, query, accountID, passwordHash, updatedAt)
	if err != nil {
		return false, fmt.Errorf("postgres_credential_repo_replace_failed: %w", dberr.Classify(err))
	}

	return tag.RowsAffected() == 1, nil
}

// # Session Repository

// PostgresSessionRepository implements [SessionStore] on users.session.
type PostgresSessionRepository struct {
	db postgres.Querier
}

// NewSessionRepository creates a PostgreSQL implementation of [SessionStore].
func NewSessionRepository(db postgres.Querier) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

/*
Create persists a session row.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: dberr.ErrDuplicate on a token hash collision, or execution failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO users.session (id, accountid, tokenhash, useragent, ipaddress, expiresat, createdat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := postgres.Conn(context, repository.db).Exec(context, query,
		session.ID,
		session.AccountID,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", dberr.Classify(err))
	}

	return nil
}

// FindByTokenHash returns the session keyed by tokenHash, or nil.
//
// Expired rows are returned too; the caller decides what expiry means.
func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	const query = `
		SELECT id, accountid, tokenhash, useragent, ipaddress, expiresat, createdat
		FROM users.session
		WHERE tokenhash = $1`

	session := &Session{}
	err := postgres.Conn(context, repository.db).QueryRow(context, query, tokenHash).Scan(
		&session.ID,
		&session.AccountID,
		&session.TokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_session_repo_find_failed: %w", err)
	}

	return session, nil
}

// Delete removes one session and reports whether this statement removed it.
func (repository *PostgresSessionRepository) Delete(context context.Context, id string) (bool, error) {
	const query = `DELETE FROM users.session WHERE id = $1`

	tag, err := postgres.Conn(context, repository.db).Exec(context, query, id)
	if err != nil {
		return false, fmt.Errorf("postgres_session_repo_delete_failed: %w", dberr.Classify(err))
	}

	return tag.RowsAffected() == 1, nil
}

// DeleteAllFor removes every session of an account.
func (repository *PostgresSessionRepository) DeleteAllFor(context context.Context, accountID string) (int64, error) {
	const query = `DELETE FROM users.session WHERE accountid = $1`

	tag, err := postgres.Conn(context, repository.db).Exec(context, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_all_failed: %w", dberr.Classify(err))
	}

	return tag.RowsAffected(), nil
}

// DeleteExpired removes sessions whose expiry is before now.
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM users.session WHERE expiresat < $1`

	tag, err := postgres.Conn(context, repository.db).Exec(context, query, now)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_repo_delete_expired_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}

// # Reset Token Repository

// PostgresResetTokenRepository implements [ResetTokenStore] on users.passwordresettoken.
type PostgresResetTokenRepository struct {
	db postgres.Querier
}

// NewResetTokenRepository creates a PostgreSQL implementation of [ResetTokenStore].
func NewResetTokenRepository(db postgres.Querier) *PostgresResetTokenRepository {
	return &PostgresResetTokenRepository{db: db}
}

// Create persists a fresh grant.
func (repository *PostgresResetTokenRepository) Create(context context.Context, token *ResetToken) error {
	const query = `
		INSERT INTO users.passwordresettoken (id, accountid, tokenhash, expiresat, used, createdat)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := postgres.Conn(context, repository.db).Exec(context, query,
		token.ID,
		token.AccountID,
		token.TokenHash,
		token.ExpiresAt,
		token.Used,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_reset_token_repo_create_failed: %w", dberr.Classify(err))
	}

	return nil
}

// FindByTokenHash returns the grant keyed by tokenHash, or nil.
func (repository *PostgresResetTokenRepository) FindByTokenHash(context context.Context, tokenHash string) (*ResetToken, error) {
	const query = `
		SELECT id, accountid, tokenhash, expiresat, used, createdat
		FROM users.passwordresettoken
		WHERE tokenhash = $1`

	token := &ResetToken{}
	err := postgres.Conn(context, repository.db).QueryRow(context, query, tokenHash).Scan(
		&token.ID,
		&token.AccountID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Used,
		&token.CreatedAt,
	)
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_reset_token_repo_find_failed: %w", err)
	}

	return token, nil
}

// MarkUsed flips the flag only on an unused row, so exactly one caller wins.
func (repository *PostgresResetTokenRepository) MarkUsed(context context.Context, id string) (bool, error) {
	const query = `UPDATE users.passwordresettoken SET used = TRUE WHERE id = $1 AND used = FALSE`

	tag, err := postgres.Conn(context, repository.db).Exec(context, query, id)
	if err != nil {
		return false, fmt.Errorf("postgres_reset_token_repo_mark_used_failed: %w", dberr.Classify(err))
	}

	return tag.RowsAffected() == 1, nil
}

// DeleteExpired removes grants that are used or past expiry.
func (repository *PostgresResetTokenRepository) DeleteExpired(context context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM users.passwordresettoken WHERE used = TRUE OR expiresat <= $1`

	tag, err := postgres.Conn(context, repository.db).Exec(context, query, now)
	if err != nil {
		return 0, fmt.Errorf("postgres_reset_token_repo_delete_expired_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}

// # Identity Link Repository

// PostgresIdentityLinkRepository implements [IdentityLinkStore] on users.identitylink.
type PostgresIdentityLinkRepository struct {
	db postgres.Querier
}

// NewIdentityLinkRepository creates a PostgreSQL implementation of [IdentityLinkStore].
func NewIdentityLinkRepository(db postgres.Querier) *PostgresIdentityLinkRepository {
	return &PostgresIdentityLinkRepository{db: db}
}

// FindByProviderAndExternalID returns the link of an external identity, or nil.
func (repository *PostgresIdentityLinkRepository) FindByProviderAndExternalID(context context.Context, provider Provider, externalID string) (*IdentityLink, error) {
	const query = `
		SELECT id, accountid, provider, externalid, accesstoken, createdat, updatedat
		FROM users.identitylink
		WHERE provider = $1 AND externalid = $2`

	link := &IdentityLink{}
	var providerTag string
	err := postgres.Conn(context, repository.db).QueryRow(context, query, string(provider), externalID).Scan(
		&link.ID,
		&link.AccountID,
		&providerTag,
		&link.ExternalID,
		&link.AccessToken,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_identity_link_repo_find_failed: %w", err)
	}
	link.Provider = Provider(providerTag)

	return link, nil
}

// Create inserts a link; the (provider, externalid) unique key rejects duplicates.
func (repository *PostgresIdentityLinkRepository) Create(context context.Context, link *IdentityLink) error {
	const query = `
		INSERT INTO users.identitylink (id, accountid, provider, externalid, accesstoken, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := postgres.Conn(context, repository.db).Exec(context, query,
		link.ID,
		link.AccountID,
		string(link.Provider),
		link.ExternalID,
		link.AccessToken,
		link.CreatedAt,
		link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_identity_link_repo_create_failed: %w", dberr.Classify(err))
	}

	return nil
}

// ReplaceAccessToken updates the cached provider token in place.
func (repository *PostgresIdentityLinkRepository) ReplaceAccessToken(context context.Context, id string, accessToken *string, updatedAt time.Time) error {
	const query = `UPDATE users.identitylink SET accesstoken = $2, updatedat = $3 WHERE id = $1`

	tag, err := postgres.Conn(context, repository.db).Exec(context, query, id, accessToken, updatedAt)
	if err != nil {
		return fmt.Errorf("postgres_identity_link_repo_replace_token_failed: %w", dberr.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres_identity_link_repo_replace_token_failed: %w", pgx.ErrNoRows)
	}

	return nil
}
