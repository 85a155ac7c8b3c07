// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"encoding/json"

	"github.com/holomush/holoclient/internal/identity"
	"github.com/holomush/holoclient/pkg/errutil"
)

// Registration is two-phase: the server validates the draft sent in
// initiate_registration and only then asks for the identity account with
// create_user. No account is created for a registration the server rejects.

func (m *Machine) beginRegistration(ctx context.Context) {
	m.transition(ctx, StateRegisteringEmail)
	m.reg = &RegistrationDraft{}
	m.log.append(PromptEmail)
}

// registrationStep stores input verbatim into the draft field for the
// current step and advances.
func (m *Machine) registrationStep(ctx context.Context, text string) {
	switch m.state {
	case StateRegisteringEmail:
		m.reg.Email = text
		m.transition(ctx, StateRegisteringSecret)
		m.log.append(PromptSecret)
	case StateRegisteringSecret:
		m.reg.Secret = text
		m.transition(ctx, StateRegisteringCharacterName)
		m.log.append(PromptCharacterName)
	case StateRegisteringCharacterName:
		m.reg.CharacterName = text
		m.transition(ctx, StateRegisteringClan)
		m.log.append(PromptClan)
	case StateRegisteringClan:
		clan, err := ParseClan(text)
		if err != nil {
			m.logger.DebugContext(ctx, "clan rejected", "code", errutil.Code(err))
			m.log.append(MsgInvalidClan, PromptClan)
			return
		}
		m.reg.Clan = clan
		m.initiateRegistration(ctx)
	}
}

func (m *Machine) initiateRegistration(ctx context.Context) {
	draft := *m.reg
	m.transition(ctx, StateAwaitingRegistrationOutcome)

	err := m.send(ctx, EventInitiateRegistration, InitiateRegistration{
		Email:         draft.Email,
		Secret:        draft.Secret,
		CharacterName: draft.CharacterName,
		Clan:          draft.Clan,
	})
	if err != nil {
		m.failRegistration(ctx, sendFailure(err))
		return
	}
	m.logger.InfoContext(ctx, "registration submitted", "draft", draft)
	m.log.append(MsgProcessingRegistration)
}

// onCreateUser creates the identity account once the server has accepted
// the draft. Only the first create_user of an attempt is honored.
func (m *Machine) onCreateUser(ctx context.Context) {
	if m.state != StateAwaitingRegistrationOutcome || m.reg == nil {
		m.logger.DebugContext(ctx, "ignoring create_user", "state", m.state.String())
		return
	}
	if m.creating {
		m.logger.DebugContext(ctx, "ignoring duplicate create_user")
		return
	}
	m.creating = true
	m.log.append(MsgCreatingAccount)
	m.callIdentity(ctx, identity.OpCreateAccount, m.reg.Email, m.reg.Secret)
}

func (m *Machine) accountCreated(ctx context.Context, r identityResult) {
	if m.state != StateAwaitingRegistrationOutcome || m.reg == nil {
		return
	}
	if r.err != nil {
		errutil.LogWarn(ctx, m.logger, "account creation failed", r.err)
		m.failRegistration(ctx, describeFailure(r.err, registrationFailed, MsgRegistrationFailed))
		return
	}

	err := m.send(ctx, EventCompleteRegistration, CompleteRegistration{
		Token:         r.token,
		CharacterName: m.reg.CharacterName,
		Clan:          m.reg.Clan,
	})
	if err != nil {
		m.failRegistration(ctx, sendFailure(err))
	}
}

func (m *Machine) onRegistrationComplete(ctx context.Context, data json.RawMessage) {
	if m.state != StateAwaitingRegistrationOutcome {
		m.logger.DebugContext(ctx, "ignoring registration_complete", "state", m.state.String())
		return
	}
	text := decodeMessage(data)
	if text == "" {
		text = MsgRegistrationComplete
	}
	m.logger.InfoContext(ctx, "registration complete")
	m.log.append(text)
	m.reset(ctx)
}

func (m *Machine) onRegistrationError(ctx context.Context, data json.RawMessage) {
	if m.state != StateAwaitingRegistrationOutcome {
		m.logger.DebugContext(ctx, "ignoring registration_error", "state", m.state.String())
		return
	}
	reason := decodeMessage(data)
	errutil.LogWarn(ctx, m.logger, "registration rejected", ErrServerRejected(EventRegistrationError, reason))
	if reason == "" {
		m.failRegistration(ctx, MsgRegistrationFailed)
		return
	}
	m.failRegistration(ctx, registrationFailed(reason))
}

func (m *Machine) failRegistration(ctx context.Context, reason string) {
	m.log.append(reason, MsgTryRegisteringAgain)
	m.reset(ctx)
}

// describeFailure renders an identity error as a user message: wrap applied
// to the specific text when the kind is known, fallback otherwise.
func describeFailure(err error, wrap func(string) string, fallback string) string {
	if text := identity.Describe(err, ""); text != "" {
		return wrap(text)
	}
	return fallback
}
