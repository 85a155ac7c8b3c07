// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

// State is the current step of the session dialog.
type State uint8

// Dialog states. Registering* and Awaiting* states carry a draft; Idle and
// Authenticated never do.
const (
	StateIdle State = iota
	StateRegisteringEmail
	StateRegisteringSecret
	StateRegisteringCharacterName
	StateRegisteringClan
	StateAwaitingRegistrationOutcome
	StateLoggingInEmail
	StateLoggingInSecret
	StateAwaitingLoginOutcome
	StateAuthenticated
)

var stateNames = map[State]string{
	StateIdle:                        "idle",
	StateRegisteringEmail:            "registering_email",
	StateRegisteringSecret:           "registering_secret",
	StateRegisteringCharacterName:    "registering_character_name",
	StateRegisteringClan:             "registering_clan",
	StateAwaitingRegistrationOutcome: "awaiting_registration_outcome",
	StateLoggingInEmail:              "logging_in_email",
	StateLoggingInSecret:             "logging_in_secret",
	StateAwaitingLoginOutcome:        "awaiting_login_outcome",
	StateAuthenticated:               "authenticated",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// allowedTransitions is the complete transition table.
var allowedTransitions = map[State][]State{
	StateIdle:                        {StateRegisteringEmail, StateLoggingInEmail},
	StateRegisteringEmail:            {StateRegisteringSecret},
	StateRegisteringSecret:           {StateRegisteringCharacterName},
	StateRegisteringCharacterName:    {StateRegisteringClan},
	StateRegisteringClan:             {StateAwaitingRegistrationOutcome},
	StateAwaitingRegistrationOutcome: {StateIdle},
	StateLoggingInEmail:              {StateLoggingInSecret},
	StateLoggingInSecret:             {StateAwaitingLoginOutcome},
	StateAwaitingLoginOutcome:        {StateAuthenticated, StateIdle},
	StateAuthenticated:               {StateIdle},
}

// CanTransition reports whether the table allows moving from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Registering reports whether s holds a registration draft.
func (s State) Registering() bool {
	return s >= StateRegisteringEmail && s <= StateAwaitingRegistrationOutcome
}

// LoggingIn reports whether s holds a login draft.
func (s State) LoggingIn() bool {
	return s >= StateLoggingInEmail && s <= StateAwaitingLoginOutcome
}

// Awaiting reports whether s is waiting on the server or identity provider.
func (s State) Awaiting() bool {
	return s == StateAwaitingRegistrationOutcome || s == StateAwaitingLoginOutcome
}

// Secret reports whether input in s is a secret and must be masked.
func (s State) Secret() bool {
	return s == StateRegisteringSecret || s == StateLoggingInSecret
}

// Prompt is the short label rendered next to the input box.
func (s State) Prompt() string {
	switch s {
	case StateRegisteringEmail, StateLoggingInEmail:
		return "email"
	case StateRegisteringSecret, StateLoggingInSecret:
		return "password"
	case StateRegisteringCharacterName:
		return "character name"
	case StateRegisteringClan:
		return "clan"
	case StateAwaitingRegistrationOutcome, StateAwaitingLoginOutcome:
		return "please wait"
	case StateAuthenticated:
		return "command"
	default:
		return "login or register"
	}
}
