// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/postgres"
)

// # Postgres Repository

const accountColumns = `id, email, displayname, avatarref, emailverifiedat, createdat, updatedat`

// PostgresRepository implements [Repository] on the users.account table.
type PostgresRepository struct {
	db postgres.Querier
}

// NewPostgresRepository creates a repository that enlists in the ambient transaction.
func NewPostgresRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) findOne(context context.Context, where string, argument string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users.account WHERE ` + where + ` = $1`

	account := &Account{}
	err := postgres.Conn(context, repository.db).QueryRow(context, query, argument).Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.AvatarRef,
		&account.EmailVerifiedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

// FindByID retrieves an account from users.account by primary key.
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Account, error) {
	account, err := repository.findOne(context, "id", id)
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_find_by_id_failed: %w", err)
	}
	return account, nil
}

// FindByEmail retrieves an account from users.account by its unique email.
func (repository *PostgresRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	account, err := repository.findOne(context, "email", email)
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_find_by_email_failed: %w", err)
	}
	return account, nil
}

/*
Create inserts a new row into users.account.

Parameters:
  - context: context.Context
  - account: *Account

Returns:
  - error: dberr.ErrDuplicate on an email collision, or execution failures
*/
func (repository *PostgresRepository) Create(context context.Context, account *Account) error {
	query := `INSERT INTO users.account (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := postgres.Conn(context, repository.db).Exec(context, query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.AvatarRef,
		account.EmailVerifiedAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_create_failed: %w", dberr.Classify(err))
	}
	return nil
}
