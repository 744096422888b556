// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/middleware"
	requestutil "github.com/taibuivan/yomira-auth/internal/platform/request"
	"github.com/taibuivan/yomira-auth/internal/platform/respond"
	"github.com/taibuivan/yomira-auth/internal/platform/sec"
	"github.com/taibuivan/yomira-auth/internal/platform/validate"
)

// # Definitions & Constructors

// Guards are optional middlewares applied to the abuse-prone endpoint groups.
// A nil guard lets requests through.
type Guards struct {
	// Credentials wraps register and login.
	Credentials func(http.Handler) http.Handler

	// Recovery wraps the password reset endpoints.
	Recovery func(http.Handler) http.Handler
}

// Handler implements the authentication HTTP endpoints.
//
// It owns transport concerns only: payload decoding, cookies, status codes.
type Handler struct {
	authService *Service
	guards      Guards
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, guards Guards) *Handler {
	return &Handler{authService: service, guards: guards}
}

/*
Routes returns a [chi.Router] configured with the authentication endpoints.

Endpoints:
  - POST /register, /login, /refresh, /logout
  - POST /forgot-password, /reset-password
  - GET  /{provider}, /{provider}/callback
*/
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.With(guard(handler.guards.Credentials)).Post("/register", handler.register)
	router.With(guard(handler.guards.Credentials)).Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)

	router.With(guard(handler.guards.Recovery)).Post("/forgot-password", handler.forgotPassword)
	router.With(guard(handler.guards.Recovery)).Post("/reset-password", handler.resetPassword)

	router.Get("/{provider}", handler.oauthAuthorize)
	router.Get("/{provider}/callback", handler.oauthCallback)

	return router
}

// guard substitutes a pass-through for a nil middleware.
func guard(wrap func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if wrap == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return wrap
}

// # Request Payloads

type registerRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// # Password Endpoints

/*
POST /api/v1/auth/register.

Description: Creates an account with a password credential.

Request:
  - Body: registerRequest (Email, Password, Name)

Response:
  - 201: Account: Created account
  - 400: ErrValidation: Bad input or weak password
  - 409: ErrConflict: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, AccountView{
		ID:          created.ID,
		Email:       created.Email,
		DisplayName: created.DisplayName,
	})
}

/*
POST /api/v1/auth/login.

Description: Verifies the password, starts a session and sets the refresh
token cookie.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: Result: Token pair and account projection
  - 401: ErrInvalidCredentials: Any credential mismatch
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
		Client:   clientMeta(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	setRefreshCookie(writer, result.RefreshToken, result.RefreshTokenExpiresAt)
	respond.OK(writer, result)
}

/*
POST /api/v1/auth/refresh.

Description: Rotates the refresh token taken from the body or, failing that,
from the refresh cookie. The presented token is unusable afterwards.

Response:
  - 200: Result: New token pair
  - 401: ErrUnauthorized: Missing, invalid, expired or already rotated token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	refreshToken, err := refreshTokenFrom(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Refresh(request.Context(), refreshToken, clientMeta(request))
	if err != nil {
		clearCookie(writer, constants.RefreshTokenCookieName, constants.RefreshTokenCookiePath)
		respond.Error(writer, request, err)
		return
	}

	setRefreshCookie(writer, result.RefreshToken, result.RefreshTokenExpiresAt)
	respond.OK(writer, result)
}

/*
POST /api/v1/auth/logout.

Description: Deletes the session behind the presented refresh token and
clears the refresh cookie either way.

Response:
  - 204: No Content: Session terminated
  - 401: ErrUnauthorized: No session matches the token
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	refreshToken, err := refreshTokenFrom(request)
	clearCookie(writer, constants.RefreshTokenCookieName, constants.RefreshTokenCookiePath)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), refreshToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/auth/forgot-password.

Description: Mails a reset link when the email is registered. The response
is identical whether or not it is.

Response:
  - 202: Message: Generic acknowledgement
  - 400: ErrValidation: Malformed email
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Accepted(writer, map[string]string{
		FieldMessage: "If the email exists, a password reset link has been sent",
	})
}

/*
POST /api/v1/auth/reset-password.

Description: Consumes a reset token, replaces the password and signs the
account out everywhere.

Response:
  - 200: Message: Password replaced
  - 400: ErrValidation: Weak password
  - 401: ErrUnauthorized: Invalid or expired reset token
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Password has been reset successfully")
}

// # External Identity Endpoints

/*
GET /api/v1/auth/{provider}.

Description: Redirects to the provider consent screen. A random state value
is stored in a short-lived cookie and echoed back on the callback.

Response:
  - 302: Redirect to the provider
  - 400: ErrValidation: Unknown provider
*/
func (handler *Handler) oauthAuthorize(writer http.ResponseWriter, request *http.Request) {
	state, err := sec.GenerateSecureToken(OAuthStateLength)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	consentURL, err := handler.authService.OAuthAuthorizeURL(requestutil.Param(request, FieldProvider), state)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.OAuthStateCookieName,
		Value:    state,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  time.Now().Add(constants.OAuthStateTTL),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(writer, request, consentURL, http.StatusFound)
}

/*
GET /api/v1/auth/{provider}/callback.

Description: Checks the state cookie, completes the code exchange and
starts a session exactly like a password login.

Request:
  - Query: code, state (error when the user declined)

Response:
  - 200: Result: Token pair and account projection
  - 401: ErrUnauthorized: State mismatch
  - 502: ErrExternalAuth: Provider refused the exchange
*/
func (handler *Handler) oauthCallback(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	cookie, err := request.Cookie(constants.OAuthStateCookieName)
	clearCookie(writer, constants.OAuthStateCookieName, constants.RefreshTokenCookiePath)
	if err != nil || cookie.Value == "" ||
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(query.Get(FieldState))) != 1 {
		respond.Error(writer, request, apperr.Unauthorized("Invalid OAuth state"))
		return
	}

	if denied := query.Get("error"); denied != "" {
		respond.Error(writer, request, apperr.ExternalAuth(errors.New("oauth: provider returned "+denied)))
		return
	}

	code := query.Get(FieldCode)
	if code == "" {
		respond.Error(writer, request, validate.RequiredError(FieldCode, "This field is required"))
		return
	}

	result, err := handler.authService.OAuthCallback(request.Context(), OAuthInput{
		Provider: requestutil.Param(request, FieldProvider),
		Code:     code,
		Client:   clientMeta(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	setRefreshCookie(writer, result.RefreshToken, result.RefreshTokenExpiresAt)
	respond.OK(writer, result)
}

// # Transport Helpers

// clientMeta describes the calling device for the session record.
func clientMeta(request *http.Request) ClientMeta {
	return ClientMeta{
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	}
}

// refreshTokenFrom reads the refresh token from the JSON body, then the cookie.
func refreshTokenFrom(request *http.Request) (string, error) {
	if request.ContentLength != 0 {
		var input refreshRequest
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			return "", err
		}
		if input.RefreshToken != "" {
			return input.RefreshToken, nil
		}
	}

	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	return "", apperr.Unauthorized("Missing refresh token")
}

func setRefreshCookie(writer http.ResponseWriter, refreshToken string, expiresAt time.Time) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    refreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  expiresAt,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearCookie(writer http.ResponseWriter, name, path string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
