// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

// ForcedLogoutNotice is the server text that evicts this session because the
// same identity logged in elsewhere.
const ForcedLogoutNotice = "You are already logged in from another session."

// User-facing message log text.
const (
	PromptEmail         = "Please enter your email:"
	PromptSecret        = "Please enter your password:"
	PromptCharacterName = "Please enter your character name:"

	MsgMustAuthenticate       = "You must log in first. Type 'login' or 'register'."
	MsgPleaseWait             = "Please wait..."
	MsgInvalidClan            = "Invalid clan selection."
	MsgProcessingRegistration = "Processing registration..."
	MsgCreatingAccount        = "Creating your account..."
	MsgRegistrationComplete   = "Registration complete. Type 'login' to log in."
	MsgRegistrationFailed     = "Registration failed."
	MsgTryRegisteringAgain    = "Please try registering again."
	MsgLoggingIn              = "Logging in..."
	MsgLoginSuccess           = "Login successful."
	MsgLoginFailed            = "Login failed. Please try again."
	MsgLoginTimedOut          = "Login timed out. Please try again."
	MsgLoggedOut              = "You have been logged out."
	MsgConnected              = "Connected to server."
	MsgDisconnected           = "Disconnected from server."
	MsgNotConnected           = "Not connected to server."
	MsgSendFailed             = "Could not reach the server. Please try again."
)

// PromptClan lists the valid clans.
var PromptClan = "Please choose your clan (" + clanList() + "):"

func registrationFailed(reason string) string {
	return "Registration failed: " + reason
}

func loginFailed(reason string) string {
	return "Login failed: " + reason
}
