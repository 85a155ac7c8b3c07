// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package identity adapts the external identity provider used for account
// creation and authentication. Calls are single shot; retry is the caller's
// decision.
package identity

import "context"

// Token is an opaque credential issued by the identity provider and presented
// to the game server.
type Token string

// Provider creates and authenticates accounts with the identity provider.
type Provider interface {
	// CreateAccount registers a new account and returns a token for it.
	CreateAccount(ctx context.Context, email, secret string) (Token, error)

	// Authenticate verifies existing credentials and returns a token.
	Authenticate(ctx context.Context, email, secret string) (Token, error)
}

// Operation names used in spans, metrics and logs.
const (
	OpCreateAccount = "create_account"
	OpAuthenticate  = "authenticate"
)
