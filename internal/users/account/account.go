// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account owns the account identity record.

It provides the lookup and creation contract consumed by the auth flows and a
read-only profile endpoint for the authenticated caller.

# Architecture

  - Entities: Account.
  - Domain: The auth package holds only account IDs and depends on this package.
  - Storage: Postgres for deployments, memdb for local runs and tests.
*/
package account

import (
	"context"
	"time"
)

// DisplayNameMaxLength bounds the display name in characters.
const DisplayNameMaxLength = 100

// # Domain Entities

// Account is the identity every credential, session and external link hangs off.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`

	DisplayName     *string    `json:"display_name,omitempty"`
	AvatarRef       *string    `json:"avatar_ref,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccountInput carries the fields known when an account is first created.
type NewAccountInput struct {
	Email         string
	DisplayName   *string
	AvatarRef     *string
	EmailVerified bool
}

// # Repository Contracts

// Repository defines the persistence contract for accounts.
//
// Lookups return (nil, nil) when no row matches. Every method joins the
// transaction carried by its context, if any.
type Repository interface {
	/*
		FindByID retrieves an account by its unique ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Account: The account, or nil when absent
		  - error: Storage failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindByEmail retrieves an account by its email, compared as stored.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Account: The account, or nil when absent
		  - error: Storage failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	/*
		Create persists a new account.

		Parameters:
		  - context: context.Context
		  - account: *Account (fully populated, including ID and timestamps)

		Returns:
		  - error: dberr.ErrDuplicate when the email is taken, or storage failures
	*/
	Create(context context.Context, account *Account) error
}
