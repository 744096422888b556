// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// MinSecureTokenBytes is the smallest accepted entropy for opaque tokens (128 bits).
const MinSecureTokenBytes = 16

// GenerateSecureToken returns a URL-safe random string carrying byteLength
// bytes of entropy from the OS CSPRNG.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength < MinSecureTokenBytes {
		byteLength = MinSecureTokenBytes
	}

	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashToken returns the hex SHA-256 digest of a bearer value.
//
// Stores persist only this digest, so a leaked table cannot be replayed.
// High-entropy inputs make an unsalted fast hash sufficient here.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
