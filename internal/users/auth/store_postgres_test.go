// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/postgres"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
	"github.com/taibuivan/yomira-auth/pkg/pointer"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

/*
TestSessionRepository_Find hydrates a row and maps "no rows" to nil.
*/
func TestSessionRepository_Find(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewSessionRepository(mock)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"id", "accountid", "tokenhash", "useragent", "ipaddress", "expiresat", "createdat"}

	mock.ExpectQuery(`SELECT .* FROM users.session WHERE tokenhash = \$1`).
		WithArgs("hash-1").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("s-1", "acc-1", "hash-1", "agent", "203.0.113.7", now.Add(time.Hour), now))

	session, err := repository.FindByTokenHash(context.Background(), "hash-1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "acc-1", session.AccountID)
	assert.False(t, session.Expired(now))

	mock.ExpectQuery(`SELECT .* FROM users.session WHERE tokenhash = \$1`).
		WithArgs("hash-2").
		WillReturnError(pgx.ErrNoRows)

	session, err = repository.FindByTokenHash(context.Background(), "hash-2")
	require.NoError(t, err)
	assert.Nil(t, session)
}

/*
TestSessionRepository_Delete reports whether this statement removed the row.
*/
func TestSessionRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewSessionRepository(mock)

	mock.ExpectExec(`DELETE FROM users.session WHERE id = \$1`).
		WithArgs("s-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM users.session WHERE id = \$1`).
		WithArgs("s-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	deleted, err := repository.Delete(context.Background(), "s-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repository.Delete(context.Background(), "s-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

/*
TestSessionRepository_CreateDuplicate classifies a unique violation.
*/
func TestSessionRepository_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewSessionRepository(mock)

	mock.ExpectExec(`INSERT INTO users.session`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	err := repository.Create(context.Background(), &auth.Session{ID: "s-1", AccountID: "acc-1", TokenHash: "hash-1"})
	assert.ErrorIs(t, err, dberr.ErrDuplicate)
}

/*
TestResetTokenRepository_MarkUsed only flips an unused row.
*/
func TestResetTokenRepository_MarkUsed(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewResetTokenRepository(mock)

	mock.ExpectExec(`UPDATE users.passwordresettoken SET used = TRUE WHERE id = \$1 AND used = FALSE`).
		WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users.passwordresettoken SET used = TRUE WHERE id = \$1 AND used = FALSE`).
		WithArgs("r-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	marked, err := repository.MarkUsed(context.Background(), "r-1")
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = repository.MarkUsed(context.Background(), "r-1")
	require.NoError(t, err)
	assert.False(t, marked)
}

/*
TestIdentityLinkRepository covers lookup, duplicate insert and replacing a
token on a vanished row.
*/
func TestIdentityLinkRepository(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewIdentityLinkRepository(mock)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"id", "accountid", "provider", "externalid", "accesstoken", "createdat", "updatedat"}

	mock.ExpectQuery(`SELECT .* FROM users.identitylink WHERE provider = \$1 AND externalid = \$2`).
		WithArgs("github", "gh-1").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("l-1", "acc-1", "github", "gh-1", pointer.To("tok"), now, now))

	link, err := repository.FindByProviderAndExternalID(context.Background(), auth.ProviderGitHub, "gh-1")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, auth.ProviderGitHub, link.Provider)
	assert.Equal(t, "tok", pointer.Val(link.AccessToken))

	mock.ExpectExec(`INSERT INTO users.identitylink`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	err = repository.Create(context.Background(), &auth.IdentityLink{ID: "l-2", Provider: auth.ProviderGitHub, ExternalID: "gh-1"})
	assert.ErrorIs(t, err, dberr.ErrDuplicate)

	mock.ExpectExec(`UPDATE users.identitylink SET accesstoken = \$2, updatedat = \$3 WHERE id = \$1`).
		WithArgs("l-9", pointer.To("new"), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repository.ReplaceAccessToken(context.Background(), "l-9", pointer.To("new"), now)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}

/*
TestCredentialRepository_ReplaceInsideTx joins the transaction carried by the context.
*/
func TestCredentialRepository_ReplaceInsideTx(t *testing.T) {
	mock := newMock(t)
	repository := auth.NewCredentialRepository(mock)
	manager := postgres.NewTxManager(mock)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite})
	mock.ExpectExec(`UPDATE users.credential SET passwordhash = \$2, updatedat = \$3 WHERE accountid = \$1`).
		WithArgs("acc-1", "new-hash", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := manager.WithinTx(context.Background(), func(ctx context.Context) error {
		replaced, err := repository.ReplaceHash(ctx, "acc-1", "new-hash", now)
		if err != nil {
			return err
		}
		assert.True(t, replaced)
		return nil
	})
	require.NoError(t, err)
}
