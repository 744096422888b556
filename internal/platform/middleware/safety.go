// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/ctxutil"
	"github.com/taibuivan/yomira-auth/internal/platform/respond"
)

// PanicRecovery turns a handler panic into a logged 500.
// [http.ErrAbortHandler] is re-raised so net/http can abort the connection.
func PanicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(recovered)
				}

				ctx := request.Context()
				ctxutil.Logger(ctx).ErrorContext(ctx, "panic_recovered",
					slog.Any("panic", recovered),
					slog.String("stack", string(debug.Stack())),
				)
				respond.Error(writer, request, apperr.Internal(fmt.Errorf("panic: %v", recovered)))
			}()

			next.ServeHTTP(writer, request)
		})
	}
}

// AppConfig is the part of the configuration CORS depends on.
type AppConfig interface {
	IsDevelopment() bool
	AllowedOrigins() []string
}

const (
	corsAllowMethods  = "GET, POST, OPTIONS"
	corsAllowHeaders  = "Accept, Content-Type, Authorization, X-Request-ID"
	corsExposeHeaders = "X-Request-ID, Retry-After"
)

/*
CORS grants credentialed cross-origin access to allow-listed origins.

Description: Development mode reflects any origin. A preflight (OPTIONS
carrying Access-Control-Request-Method) is answered here with 204; other
requests continue down the chain whether or not the origin was granted,
leaving enforcement to the browser.
*/
func CORS(cfg AppConfig) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	for _, origin := range cfg.AllowedOrigins() {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			origin := request.Header.Get(constants.HeaderOrigin)
			if origin == "" {
				next.ServeHTTP(writer, request)
				return
			}

			header := writer.Header()
			header.Add("Vary", constants.HeaderOrigin)

			_, granted := allowed[origin]
			if granted || cfg.IsDevelopment() {
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			}

			if request.Method == http.MethodOptions && request.Header.Get("Access-Control-Request-Method") != "" {
				if granted || cfg.IsDevelopment() {
					header.Set("Access-Control-Allow-Methods", corsAllowMethods)
					header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
					header.Set("Access-Control-Max-Age", "300")
				}
				writer.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
