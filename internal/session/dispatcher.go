// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"sync/atomic"
)

// Sender writes a named event to the server.
type Sender interface {
	Send(ctx context.Context, event string, payload any) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, event string, payload any) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, event string, payload any) error {
	return f(ctx, event, payload)
}

// Dispatcher forwards game commands while the session is authenticated.
type Dispatcher struct {
	sender Sender
	active atomic.Bool
}

// NewDispatcher creates an inactive dispatcher.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Active reports whether commands are currently forwarded.
func (d *Dispatcher) Active() bool {
	return d.active.Load()
}

func (d *Dispatcher) setActive(active bool) {
	d.active.Store(active)
}

// Dispatch sends text as a command event, unmodified.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) error {
	if !d.active.Load() {
		return ErrNotAuthenticated()
	}
	//nolint:wrapcheck // senders return oops errors
	return d.sender.Send(ctx, EventCommand, Command{Text: text})
}
