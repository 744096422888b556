// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package requestutil reads typed input out of an *http.Request: JSON
// bodies, route parameters and the authenticated caller.
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/ctxutil"
	"github.com/taibuivan/yomira-auth/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies; auth payloads are tiny.
const maxBodyBytes = 64 << 10

/*
DecodeJSON strictly decodes one JSON object from the body into target.

Description: Unknown fields, trailing data, an empty body and bodies over
64 KiB are all rejected with the same error.

Returns:
  - error: validate.ErrInvalidJSON on any decoding problem
*/
func DecodeJSON(request *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, request.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return validate.ErrInvalidJSON
	}
	return nil
}

// RequiredAccountID returns the caller's account ID, or 401 for anonymous requests.
func RequiredAccountID(request *http.Request) (string, error) {
	accountID := ctxutil.AccountID(request.Context())
	if accountID == "" {
		return "", apperr.Unauthorized("Authentication required")
	}
	return accountID, nil
}

// Param returns a named route parameter.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}
