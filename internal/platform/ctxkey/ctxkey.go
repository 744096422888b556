// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey declares the keys of the per-request values carried in a
// [context.Context]. Only ctxutil should read or write them.
package ctxkey

// Key is comparable by identity: two keys never collide even with equal names.
type Key struct {
	name string
}

// String names the key in debug output.
func (key *Key) String() string {
	return "ctxkey." + key.name
}

var (
	// RequestID holds the correlation ID echoed in X-Request-ID.
	RequestID = &Key{name: "request_id"}

	// Claims holds the verified access-token claims of the caller.
	Claims = &Key{name: "claims"}

	// Logger holds the request-scoped *slog.Logger.
	Logger = &Key{name: "logger"}
)
