// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package conn

import "github.com/samber/oops"

// Error codes for connection failures.
const (
	CodeNotConnected = "CONN_NOT_CONNECTED"
	CodeDialFailed   = "CONN_DIAL_FAILED"
	CodeClosed       = "CONN_CLOSED"
	CodeEncode       = "CONN_ENCODE_FAILED"
)

// ErrNotConnected creates the error returned by Send while disconnected.
func ErrNotConnected(event string) error {
	return oops.Code(CodeNotConnected).
		With("event", event).
		Errorf("not connected to server")
}

// ErrDialFailed wraps the last dial error after all attempts are spent.
func ErrDialFailed(attempts uint64, cause error) error {
	return oops.Code(CodeDialFailed).
		With("attempts", attempts).
		Wrapf(cause, "could not connect to server")
}

// ErrClosed reports that the server closed the channel normally.
func ErrClosed() error {
	return oops.Code(CodeClosed).Errorf("connection closed by server")
}

// ErrEncode wraps a payload that could not be marshalled.
func ErrEncode(event string, cause error) error {
	return oops.Code(CodeEncode).
		With("event", event).
		Wrapf(cause, "failed to encode event payload")
}
