// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"encoding/json"

	"github.com/holomush/holoclient/internal/identity"
)

// Server-bound events.
const (
	EventInitiateRegistration = "initiate_registration"
	EventCompleteRegistration = "complete_registration"
	EventLogin                = "login"
	EventCommand              = "command"
)

// Server-pushed events.
const (
	EventCreateUser           = "create_user"
	EventRegistrationComplete = "registration_complete"
	EventRegistrationError    = "registration_error"
	EventMessage              = "message"
	EventLoginResult          = "login_result"
)

// inboundEvents are the events the machine subscribes to.
var inboundEvents = []string{
	EventCreateUser,
	EventRegistrationComplete,
	EventRegistrationError,
	EventMessage,
	EventLoginResult,
}

// InitiateRegistration carries the full draft for server-side validation.
type InitiateRegistration struct {
	Email         string `json:"email"`
	Secret        string `json:"secret"`
	CharacterName string `json:"characterName"`
	Clan          Clan   `json:"clan"`
}

// CompleteRegistration hands the server the token for the new account.
type CompleteRegistration struct {
	Token         identity.Token `json:"token"`
	CharacterName string         `json:"characterName"`
	Clan          Clan           `json:"clan"`
}

// Login presents an identity token to the server.
type Login struct {
	Token identity.Token `json:"token"`
}

// Command is a free-form game command.
type Command struct {
	Text string `json:"text"`
}

// LoginResult is the server's explicit answer to a login event.
type LoginResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// decodeText extracts display text from a pushed payload. Servers send
// either a bare JSON string or an object with a text or message field.
// Anything else is shown as raw JSON.
func decodeText(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj struct {
		Text    *string `json:"text"`
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		switch {
		case obj.Text != nil:
			return *obj.Text
		case obj.Message != nil:
			return *obj.Message
		}
	}
	return string(data)
}

// decodeMessage extracts the message field of a registration outcome. A bare
// JSON string is accepted too. Anything else yields "".
func decodeMessage(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Message != nil {
		return *obj.Message
	}
	return ""
}
