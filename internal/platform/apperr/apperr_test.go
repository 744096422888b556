// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
)

/*
TestAs_FindsWrappedErrors digs the AppError out of a wrapped chain and keeps
the cause reachable.
*/
func TestAs_FindsWrappedErrors(t *testing.T) {
	timeout := apperr.Timeout(context.DeadlineExceeded)
	wrapped := fmt.Errorf("refresh: %w", timeout)

	assert.Same(t, timeout, apperr.As(wrapped))
	assert.True(t, apperr.HasCode(wrapped, apperr.CodeTimeout))
	assert.False(t, apperr.HasCode(wrapped, apperr.CodeInternal))
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)

	assert.Nil(t, apperr.As(errors.New("plain")))
	assert.False(t, apperr.HasCode(nil, apperr.CodeTimeout))
}

/*
TestConstructors_Statuses pins the HTTP status of every client-visible code.
*/
func TestConstructors_Statuses(t *testing.T) {
	cases := map[*apperr.AppError]int{
		apperr.NotFound("Account"):      http.StatusNotFound,
		apperr.Unauthorized("nope"):     http.StatusUnauthorized,
		apperr.InvalidCredentials():     http.StatusUnauthorized,
		apperr.Conflict("taken"):        http.StatusConflict,
		apperr.ValidationError("bad"):   http.StatusBadRequest,
		apperr.RateLimited(time.Second): http.StatusTooManyRequests,
		apperr.Internal(nil):            http.StatusInternalServerError,
		apperr.ExternalAuth(nil):        http.StatusBadGateway,
		apperr.Timeout(nil):             http.StatusGatewayTimeout,
	}

	for appErr, status := range cases {
		assert.Equal(t, status, appErr.HTTPStatus, appErr.Code)
	}
}

/*
TestRateLimited_RoundsUp never advertises a wait below one second.
*/
func TestRateLimited_RoundsUp(t *testing.T) {
	assert.Equal(t, time.Second, apperr.RateLimited(10*time.Millisecond).RetryAfter)
	assert.Equal(t, 2*time.Second, apperr.RateLimited(1100*time.Millisecond).RetryAfter)
	assert.Contains(t, apperr.RateLimited(90*time.Second).Message, "90s")
}
