// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate collects field-level input problems and reports them as
// one VALIDATION_ERROR.
//
// Handlers use it for payload shape; services use it again for the rules
// that must hold whichever transport called them.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
)

// emailMaxLength is the RFC 5321 limit on a forward path.
const emailMaxLength = 254

var (
	// opaqueTokenPattern is the unpadded base64url alphabet used by issued tokens.
	opaqueTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

// Validator accumulates failures across a chain of rules.
//
// The zero value is ready to use. It is not safe for concurrent use.
type Validator struct {
	failures []apperr.FieldError
}

// Required fails when value is empty after trimming.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.fail(field, "This field is required")
	}
	return v
}

// MinLen fails when value has fewer than min characters.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.fail(field, fmt.Sprintf("Minimum %d characters", min))
	}
	return v
}

// MaxLen fails when value has more than max characters.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.fail(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// MaxBytes fails when the encoded value is longer than max bytes.
// Password hashers truncate or reject on bytes, not characters.
func (v *Validator) MaxBytes(field, value string, max int) *Validator {
	if len(value) > max {
		v.fail(field, fmt.Sprintf("Maximum %d bytes", max))
	}
	return v
}

// Email fails unless value is a bare addr-spec. Display-name forms such as
// "Ann <ann@example.com>" are rejected.
func (v *Validator) Email(field, value string) *Validator {
	address, err := mail.ParseAddress(value)
	if err != nil || address.Name != "" || address.Address != value || len(value) > emailMaxLength {
		v.fail(field, "Must be a valid email address")
	}
	return v
}

// OpaqueToken fails unless value looks like a token this service issued.
func (v *Validator) OpaqueToken(field, value string) *Validator {
	if !opaqueTokenPattern.MatchString(value) {
		v.fail(field, "Malformed token")
	}
	return v
}

// Custom records message for field when failed is true.
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.fail(field, message)
	}
	return v
}

// HasErrors reports whether any rule failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.failures) > 0
}

// Err ends the chain: nil when every rule passed.
func (v *Validator) Err() error {
	if len(v.failures) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.failures...)
}

func (v *Validator) fail(field, message string) {
	v.failures = append(v.failures, apperr.FieldError{Field: field, Message: message})
}

// RequiredError builds a VALIDATION_ERROR for one field.
func RequiredError(field, message string) *apperr.AppError {
	return apperr.ValidationError("Validation failed", apperr.FieldError{Field: field, Message: message})
}
