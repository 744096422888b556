// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/memdb"
)

// # In-Memory Stores
//
// These back STORE_BACKEND=memory and the service tests. Rows are copied in
// and out of memdb tables, so callers never share state with the store.

// MemoryCredentialStore implements [CredentialStore] keyed by account ID.
type MemoryCredentialStore struct {
	rows *memdb.Table[string, Credential]
}

// NewMemoryCredentialStore registers the credential table with db.
func NewMemoryCredentialStore(db *memdb.DB) *MemoryCredentialStore {
	return &MemoryCredentialStore{rows: memdb.NewTable[string, Credential](db)}
}

func (store *MemoryCredentialStore) Find(context context.Context, accountID string) (*Credential, error) {
	credential, found := store.rows.Get(context, accountID)
	if !found {
		return nil, nil
	}
	return &credential, nil
}

func (store *MemoryCredentialStore) Create(context context.Context, credential *Credential) error {
	if !store.rows.Insert(context, credential.AccountID, *credential, nil) {
		return fmt.Errorf("memory_credential_store_create_failed: %w", dberr.ErrDuplicate)
	}
	return nil
}

func (store *MemoryCredentialStore) ReplaceHash(context context.Context, accountID, passwordHash string, updatedAt time.Time) (bool, error) {
	replaced := store.rows.Update(context, accountID, func(credential *Credential) bool {
		credential.PasswordHash = passwordHash
		credential.UpdatedAt = updatedAt
		return true
	})
	return replaced, nil
}

// MemorySessionStore implements [SessionStore] keyed by session ID.
type MemorySessionStore struct {
	rows *memdb.Table[string, Session]
}

// NewMemorySessionStore registers the session table with db.
func NewMemorySessionStore(db *memdb.DB) *MemorySessionStore {
	return &MemorySessionStore{rows: memdb.NewTable[string, Session](db)}
}

func (store *MemorySessionStore) Create(context context.Context, session *Session) error {
	inserted := store.rows.Insert(context, session.ID, *session, func(existing Session) bool {
		return existing.TokenHash == session.TokenHash
	})
	if !inserted {
		return fmt.Errorf("memory_session_store_create_failed: %w", dberr.ErrDuplicate)
	}
	return nil
}

func (store *MemorySessionStore) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	session, found := store.rows.Find(context, func(row Session) bool {
		return row.TokenHash == tokenHash
	})
	if !found {
		return nil, nil
	}
	return &session, nil
}

func (store *MemorySessionStore) Delete(context context.Context, id string) (bool, error) {
	return store.rows.Delete(context, id), nil
}

func (store *MemorySessionStore) DeleteAllFor(context context.Context, accountID string) (int64, error) {
	return store.rows.DeleteWhere(context, func(row Session) bool {
		return row.AccountID == accountID
	}), nil
}

func (store *MemorySessionStore) DeleteExpired(context context.Context, now time.Time) (int64, error) {
	return store.rows.DeleteWhere(context, func(row Session) bool {
		return row.Expired(now)
	}), nil
}

// MemoryResetTokenStore implements [ResetTokenStore] keyed by grant ID.
type MemoryResetTokenStore struct {
	rows *memdb.Table[string, ResetToken]
}

// NewMemoryResetTokenStore registers the reset token table with db.
func NewMemoryResetTokenStore(db *memdb.DB) *MemoryResetTokenStore {
	return &MemoryResetTokenStore{rows: memdb.NewTable[string, ResetToken](db)}
}

func (store *MemoryResetTokenStore) Create(context context.Context, token *ResetToken) error {
	inserted := store.rows.Insert(context, token.ID, *token, func(existing ResetToken) bool {
		return existing.TokenHash == token.TokenHash
	})
	if !inserted {
		return fmt.Errorf("memory_reset_token_store_create_failed: %w", dberr.ErrDuplicate)
	}
	return nil
}

func (store *MemoryResetTokenStore) FindByTokenHash(context context.Context, tokenHash string) (*ResetToken, error) {
	token, found := store.rows.Find(context, func(row ResetToken) bool {
		return row.TokenHash == tokenHash
	})
	if !found {
		return nil, nil
	}
	return &token, nil
}

func (store *MemoryResetTokenStore) MarkUsed(context context.Context, id string) (bool, error) {
	return store.rows.Update(context, id, func(token *ResetToken) bool {
		if token.Used {
			return false
		}
		token.Used = true
		return true
	}), nil
}

func (store *MemoryResetTokenStore) DeleteExpired(context context.Context, now time.Time) (int64, error) {
	return store.rows.DeleteWhere(context, func(row ResetToken) bool {
		return !row.Usable(now)
	}), nil
}

// MemoryIdentityLinkStore implements [IdentityLinkStore] keyed by link ID.
type MemoryIdentityLinkStore struct {
	rows *memdb.Table[string, IdentityLink]
}

// NewMemoryIdentityLinkStore registers the identity link table with db.
func NewMemoryIdentityLinkStore(db *memdb.DB) *MemoryIdentityLinkStore {
	return &MemoryIdentityLinkStore{rows: memdb.NewTable[string, IdentityLink](db)}
}

func (store *MemoryIdentityLinkStore) FindByProviderAndExternalID(context context.Context, provider Provider, externalID string) (*IdentityLink, error) {
	link, found := store.rows.Find(context, func(row IdentityLink) bool {
		return row.Provider == provider && row.ExternalID == externalID
	})
	if !found {
		return nil, nil
	}
	return &link, nil
}

func (store *MemoryIdentityLinkStore) Create(context context.Context, link *IdentityLink) error {
	inserted := store.rows.Insert(context, link.ID, *link, func(existing IdentityLink) bool {
		return existing.Provider == link.Provider && existing.ExternalID == link.ExternalID
	})
	if !inserted {
		return fmt.Errorf("memory_identity_link_store_create_failed: %w", dberr.ErrDuplicate)
	}
	return nil
}

func (store *MemoryIdentityLinkStore) ReplaceAccessToken(context context.Context, id string, accessToken *string, updatedAt time.Time) error {
	replaced := store.rows.Update(context, id, func(link *IdentityLink) bool {
		link.AccessToken = accessToken
		link.UpdatedAt = updatedAt
		return true
	})
	if !replaced {
		return fmt.Errorf("memory_identity_link_store_replace_token_failed: %w", dberr.ErrNotFound)
	}
	return nil
}
