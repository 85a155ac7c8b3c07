// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package conn owns the long-lived event channel between the client and the
// game server.
package conn

import (
	"context"
	"encoding/json"
)

// Envelope is one named event on the wire: {"event": "...", "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Stream is an established bidirectional event channel.
// Read is called from a single goroutine; Write may be called concurrently
// with Read.
type Stream interface {
	Read(ctx context.Context) (Envelope, error)
	Write(ctx context.Context, env Envelope) error
	Close() error
}

// Transport dials new streams to the game server.
type Transport interface {
	Dial(ctx context.Context) (Stream, error)
}
