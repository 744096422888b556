// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/yomira-auth/internal/platform/request"
	"github.com/taibuivan/yomira-auth/internal/platform/respond"
)

// Handler serves the caller's own account. Mount it behind
// middleware.RequireAuth; it re-checks the caller regardless.
type Handler struct {
	accountService *Service
}

// NewHandler builds the account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns the account sub-router.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/me", handler.me)
	return router
}

/*
GET /api/v1/account/me.

Description: Returns the account the access token was issued for. A token
that outlived its account answers 404 rather than 401; the token itself is
still valid until it expires.

Response:
  - 200: Account
  - 401: ErrUnauthorized: No access token
  - 404: ErrNotFound: The account was removed
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredAccountID(request)
	if err == nil {
		var profile *Account
		if profile, err = handler.accountService.GetProfile(request.Context(), accountID); err == nil {
			respond.OK(writer, profile)
			return
		}
	}
	respond.Error(writer, request, err)
}
