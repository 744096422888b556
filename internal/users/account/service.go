// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// # Service Layer

// Service exposes account reads to the HTTP layer and builds new account rows.
type Service struct {
	repository Repository
	logger     *slog.Logger
}

// NewService constructs a new [Service] with its repository dependency.
func NewService(repository Repository, logger *slog.Logger) *Service {
	return &Service{repository: repository, logger: logger}
}

/*
GetProfile retrieves the identity of an account.

Parameters:
  - context: context.Context
  - accountID: string

Returns:
  - *Account: The account
  - error: apperr.NotFound when absent, apperr.Internal on storage failures
*/
func (service *Service) GetProfile(context context.Context, accountID string) (*Account, error) {
	account, err := service.repository.FindByID(context, accountID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("account_service_get_profile_failed: %w", err))
	}
	if account == nil {
		return nil, apperr.NotFound("Account")
	}
	return account, nil
}

// New builds an unsaved account row with a fresh ID and timestamps set to now.
func New(input NewAccountInput, now time.Time) *Account {
	account := &Account{
		ID:          uuid.New(),
		Email:       input.Email,
		DisplayName: input.DisplayName,
		AvatarRef:   input.AvatarRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.EmailVerified {
		verifiedAt := now
		account.EmailVerifiedAt = &verifiedAt
	}
	return account
}
