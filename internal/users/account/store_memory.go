// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/memdb"
)

// MemoryRepository implements [Repository] on an in-process memdb table.
type MemoryRepository struct {
	accounts *memdb.Table[string, Account]
}

// NewMemoryRepository registers the account table with db.
func NewMemoryRepository(db *memdb.DB) *MemoryRepository {
	return &MemoryRepository{accounts: memdb.NewTable[string, Account](db)}
}

// FindByID returns a copy of the account stored under id.
func (repository *MemoryRepository) FindByID(context context.Context, id string) (*Account, error) {
	account, found := repository.accounts.Get(context, id)
	if !found {
		return nil, nil
	}
	return &account, nil
}

// FindByEmail returns a copy of the account whose email equals email exactly.
func (repository *MemoryRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	account, found := repository.accounts.Find(context, func(row Account) bool {
		return row.Email == email
	})
	if !found {
		return nil, nil
	}
	return &account, nil
}

// Create stores account unless its ID or email is already taken.
func (repository *MemoryRepository) Create(context context.Context, account *Account) error {
	inserted := repository.accounts.Insert(context, account.ID, *account, func(existing Account) bool {
		return existing.Email == account.Email
	})
	if !inserted {
		return fmt.Errorf("memory_account_repo_create_failed: %w", dberr.ErrDuplicate)
	}
	return nil
}
