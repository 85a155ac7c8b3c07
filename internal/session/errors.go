// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import "github.com/samber/oops"

// Error codes for session failures. None of them end the session.
const (
	CodeInvalidClan      = "SESSION_INVALID_CLAN"
	CodeNotAuthenticated = "SESSION_NOT_AUTHENTICATED"
	CodeServerRejected   = "SESSION_SERVER_REJECTED"
	CodeForcedLogout     = "SESSION_FORCED_LOGOUT"
	CodeLoginTimeout     = "SESSION_LOGIN_TIMEOUT"
	CodeAlreadyRunning   = "SESSION_ALREADY_RUNNING"
)

// ErrInvalidClan creates an error for a clan outside the closed set.
func ErrInvalidClan(input string) error {
	return oops.Code(CodeInvalidClan).
		With("input", input).
		Errorf("invalid clan selection")
}

// ErrNotAuthenticated is returned by Dispatch outside the authenticated state.
func ErrNotAuthenticated() error {
	return oops.Code(CodeNotAuthenticated).Errorf("not authenticated")
}

// ErrServerRejected records a registration or login rejected by the server.
func ErrServerRejected(event, reason string) error {
	return oops.Code(CodeServerRejected).
		With("event", event).
		With("reason", reason).
		Errorf("server rejected request")
}

// ErrForcedLogout records a server-issued eviction.
func ErrForcedLogout(state State) error {
	return oops.Code(CodeForcedLogout).
		With("state", state.String()).
		Errorf("logged in from another session")
}

// ErrLoginTimeout records a login attempt the server never answered.
func ErrLoginTimeout(timeout string) error {
	return oops.Code(CodeLoginTimeout).
		With("timeout", timeout).
		Errorf("no login result from server")
}

// ErrAlreadyRunning is returned when Run is called twice.
func ErrAlreadyRunning() error {
	return oops.Code(CodeAlreadyRunning).Errorf("session machine already running")
}
