// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"github.com/samber/oops"

	"github.com/holomush/holoclient/pkg/errutil"
)

// Error codes for identity provider failures.
const (
	CodeInvalidCredentials  = "IDENTITY_INVALID_CREDENTIALS"
	CodeAccountExists       = "IDENTITY_ACCOUNT_EXISTS"
	CodeAccountNotFound     = "IDENTITY_ACCOUNT_NOT_FOUND"
	CodeProviderUnavailable = "IDENTITY_PROVIDER_UNAVAILABLE"
)

// ErrInvalidCredentials creates an error for a rejected email/secret pair.
func ErrInvalidCredentials(op, reason string) error {
	return oops.Code(CodeInvalidCredentials).
		With("operation", op).
		With("reason", reason).
		Errorf("invalid credentials")
}

// ErrAccountExists creates an error for a sign-up with an email already in use.
func ErrAccountExists(op string) error {
	return oops.Code(CodeAccountExists).
		With("operation", op).
		Errorf("account already exists")
}

// ErrAccountNotFound creates an error for a sign-in with an unknown email.
func ErrAccountNotFound(op string) error {
	return oops.Code(CodeAccountNotFound).
		With("operation", op).
		Errorf("account not found")
}

// ErrProviderUnavailable creates an error for transport failures and 5xx responses.
func ErrProviderUnavailable(op string, cause error) error {
	builder := oops.Code(CodeProviderUnavailable).With("operation", op)
	if cause != nil {
		return builder.Wrapf(cause, "identity provider unavailable")
	}
	return builder.Errorf("identity provider unavailable")
}

// Describe returns the user-facing text for an identity failure. Known kinds
// get a specific message; anything else gets fallback.
func Describe(err error, fallback string) string {
	switch errutil.Code(err) {
	case CodeInvalidCredentials:
		return "Invalid email or password."
	case CodeAccountExists:
		return "An account with that email already exists."
	case CodeAccountNotFound:
		return "No account was found for that email."
	case CodeProviderUnavailable:
		return "The identity service is unavailable. Please try again later."
	default:
		return fallback
	}
}
