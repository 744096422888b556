// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Authentication Constraints

const (
	// ResetTokenLength is the byte length of the random password reset token (256 bits).
	ResetTokenLength = 32

	// OAuthStateLength is the byte length of the anti-forgery OAuth state value.
	OAuthStateLength = 16

	// PasswordMinLength and PasswordMaxLength bound new passwords. bcrypt
	// ignores input past 72 bytes.
	PasswordMinLength = 8
	PasswordMaxLength = 72
)

// # JSON Field Identifiers

const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldName         = "name"
	FieldToken        = "token"
	FieldRefreshToken = "refresh_token"
	FieldAccessToken  = "access_token"
	FieldTokenType    = "token_type"
	FieldAccount      = "account"
	FieldCode         = "code"
	FieldState        = "state"
	FieldProvider     = "provider"
	FieldMessage      = "message"
)
