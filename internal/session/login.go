// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"encoding/json"

	"github.com/holomush/holoclient/internal/identity"
	"github.com/holomush/holoclient/pkg/errutil"
)

func (m *Machine) beginLogin(ctx context.Context) {
	m.transition(ctx, StateLoggingInEmail)
	m.login = &LoginDraft{}
	m.log.append(PromptEmail)
}

func (m *Machine) loginStep(ctx context.Context, text string) {
	switch m.state {
	case StateLoggingInEmail:
		m.login.Email = text
		m.transition(ctx, StateLoggingInSecret)
		m.log.append(PromptSecret)
	case StateLoggingInSecret:
		m.login.Secret = text
		m.transition(ctx, StateAwaitingLoginOutcome)
		m.log.append(MsgLoggingIn)
		m.callIdentity(ctx, identity.OpAuthenticate, m.login.Email, m.login.Secret)
	}
}

// authenticated presents the identity token to the server and starts
// waiting for its verdict.
func (m *Machine) authenticated(ctx context.Context, r identityResult) {
	if m.state != StateAwaitingLoginOutcome || m.login == nil {
		return
	}
	if r.err != nil {
		errutil.LogWarn(ctx, m.logger, "authentication failed", r.err)
		m.failLogin(ctx, describeFailure(r.err, loginFailed, MsgLoginFailed))
		return
	}

	if err := m.send(ctx, EventLogin, Login{Token: r.token}); err != nil {
		m.failLogin(ctx, sendFailure(err))
		return
	}
	m.loginSent = true

	switch m.opts.LoginAck {
	case LoginAckWindow:
		m.armTimer(m.opts.LoginWindow)
	default:
		m.armTimer(m.opts.LoginTimeout)
	}
}

func (m *Machine) onLoginResult(ctx context.Context, data json.RawMessage) {
	if m.state != StateAwaitingLoginOutcome || !m.loginSent {
		m.logger.DebugContext(ctx, "ignoring login_result", "state", m.state.String())
		return
	}
	var result LoginResult
	if err := json.Unmarshal(data, &result); err != nil {
		m.logger.WarnContext(ctx, "malformed login_result", "error", err)
		m.failLogin(ctx, MsgLoginFailed)
		return
	}
	m.stopTimer()

	if result.OK {
		m.completeLogin(ctx)
		return
	}
	errutil.LogWarn(ctx, m.logger, "login rejected", ErrServerRejected(EventLoginResult, result.Reason))
	if result.Reason == "" {
		m.failLogin(ctx, MsgLoginFailed)
		return
	}
	m.failLogin(ctx, loginFailed(result.Reason))
}

// handleDeadline resolves a login the server has not answered. In window
// mode silence means acceptance; in event mode it is a failure.
func (m *Machine) handleDeadline(ctx context.Context, attempt uint64) {
	if attempt != m.attempt || m.state != StateAwaitingLoginOutcome || !m.loginSent {
		return
	}
	m.timer = nil

	if m.opts.LoginAck == LoginAckWindow {
		m.completeLogin(ctx)
		return
	}
	errutil.LogWarn(ctx, m.logger, "login timed out", ErrLoginTimeout(m.opts.LoginTimeout.String()))
	m.failLogin(ctx, MsgLoginTimedOut)
}

func (m *Machine) completeLogin(ctx context.Context) {
	m.loggedIn = true
	m.transition(ctx, StateAuthenticated)
	m.logger.InfoContext(ctx, "logged in")
	m.log.append(MsgLoginSuccess)
}

func (m *Machine) failLogin(ctx context.Context, reason string) {
	m.log.append(reason)
	m.reset(ctx)
}
