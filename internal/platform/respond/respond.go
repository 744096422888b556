// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond writes every API response in one of two JSON envelopes:
// {"data": ...} on success and {"error", "code", "details"} on failure.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/ctxutil"
)

// SuccessEnvelope wraps a successful payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the body of every error response.
type ErrorEnvelope struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// JSON writes payload with statusCode. Responses carrying credentials are never cached.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	header := writer.Header()
	header.Set("Content-Type", "application/json; charset=utf-8")
	header.Set("Cache-Control", "no-store")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes 200 with data enveloped.
func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Data: data})
}

// Created writes 201 with data enveloped.
func Created(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusCreated, SuccessEnvelope{Data: data})
}

// Accepted writes 202 for requests whose outcome is deliberately not disclosed.
func Accepted(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusAccepted, SuccessEnvelope{Data: data})
}

// Message writes 200 with a single human-readable message.
func Message(writer http.ResponseWriter, message string) {
	OK(writer, map[string]string{constants.FieldMessage: message})
}

// NoContent writes 204.
func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

/*
Error writes err as an error envelope.

Description: An [*apperr.AppError] anywhere in the chain decides status,
code and message. Any other error becomes INTERNAL_ERROR so internal details
never reach the client. Server-side failures are logged with their cause.
*/
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	ctx := request.Context()

	appErr := apperr.As(err)
	if appErr == nil {
		appErr = apperr.Internal(err)
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		ctxutil.Logger(ctx).ErrorContext(ctx, "api_server_error",
			slog.String("code", appErr.Code),
			slog.String("request_id", ctxutil.RequestID(ctx)),
			slog.Any("cause", appErr.Cause),
		)
	}

	if appErr.RetryAfter > 0 {
		writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(int(appErr.RetryAfter.Seconds())))
	}

	JSON(writer, appErr.HTTPStatus, ErrorEnvelope{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}
