// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package session implements the client side of the game session protocol:
// the credential dialog for registration and login, the message log shown to
// the user, and command dispatch once authenticated.
//
// All session state is owned by a single event loop (Machine.Run). User
// input, server events, connection changes, identity provider results and
// the login timer are posted to the loop as triggers and handled one at a
// time, so no trigger observes another half-applied.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/holoclient/internal/conn"
	"github.com/holomush/holoclient/internal/identity"
	"github.com/holomush/holoclient/pkg/errutil"
)

const triggerBuffer = 64

// Channel is the connection the machine talks to the server over.
type Channel interface {
	Sender
	On(event string, fn conn.Handler) func()
	Observe(fn conn.Observer)
	Connected() bool
}

// LoginAck selects how a login attempt is resolved.
type LoginAck string

const (
	// LoginAckEvent waits for a login_result event, failing after LoginTimeout.
	LoginAckEvent LoginAck = "event"
	// LoginAckWindow accepts the login unless the forced logout notice
	// arrives within LoginWindow. For servers without login_result.
	LoginAckWindow LoginAck = "window"
)

// Options configures a Machine.
type Options struct {
	LoginAck     LoginAck
	LoginWindow  time.Duration
	LoginTimeout time.Duration
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.LoginAck == "" {
		o.LoginAck = LoginAckEvent
	}
	if o.LoginWindow <= 0 {
		o.LoginWindow = 500 * time.Millisecond
	}
	if o.LoginTimeout <= 0 {
		o.LoginTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Snapshot is the read-only session status for rendering.
type Snapshot struct {
	State     State
	Connected bool
	LoggedIn  bool
	Prompt    string
	Secret    bool
}

type trigger any

type inputTrigger struct{ text string }

type eventTrigger struct {
	event string
	data  json.RawMessage
}

type connTrigger struct{ state conn.State }

type noticeTrigger struct{ text string }

type identityResult struct {
	op      string
	attempt uint64
	token   identity.Token
	err     error
}

type deadlineTrigger struct{ attempt uint64 }

// Machine is the session protocol state machine.
type Machine struct {
	ch         Channel
	provider   identity.Provider
	opts       Options
	logger     *slog.Logger
	log        *MessageLog
	dispatcher *Dispatcher
	unsubs     []func()

	triggers chan trigger
	done     chan struct{}
	changes  chan struct{}
	running  atomic.Bool
	inflight sync.WaitGroup

	// Owned by the event loop.
	state     State
	connected bool
	loggedIn  bool
	reg       *RegistrationDraft
	login     *LoginDraft
	attempt   uint64 // bumped whenever a dialog starts or ends
	creating  bool   // create_user already handled this attempt
	loginSent bool
	timer     *time.Timer

	snapMu sync.RWMutex
	snap   Snapshot
}

// NewMachine creates a machine in Idle and subscribes it to ch. Run must be
// called for the machine to make progress.
func NewMachine(ch Channel, provider identity.Provider, opts Options) (*Machine, error) {
	if ch == nil {
		return nil, oops.Errorf("channel is required")
	}
	if provider == nil {
		return nil, oops.Errorf("identity provider is required")
	}
	opts = opts.withDefaults()
	if opts.LoginAck != LoginAckEvent && opts.LoginAck != LoginAckWindow {
		return nil, oops.With("login_ack", opts.LoginAck).Errorf("unknown login acknowledgment mode")
	}

	m := &Machine{
		ch:       ch,
		provider: provider,
		opts:     opts,
		logger:   opts.Logger,
		log:      NewMessageLog(),
		triggers: make(chan trigger, triggerBuffer),
		done:     make(chan struct{}),
		changes:  make(chan struct{}, 1),
	}
	m.dispatcher = NewDispatcher(SenderFunc(m.send))
	m.publish()

	for _, event := range inboundEvents {
		m.unsubs = append(m.unsubs, ch.On(event, func(data json.RawMessage) {
			m.post(eventTrigger{event: event, data: data})
		}))
	}
	ch.Observe(func(state conn.State) {
		m.post(connTrigger{state: state})
	})
	return m, nil
}

// Run processes triggers until ctx is cancelled. It waits for in-flight
// identity calls before returning.
func (m *Machine) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning()
	}
	defer m.shutdown()

	if m.ch.Connected() {
		m.handle(ctx, connTrigger{state: conn.Connected})
	}
	m.logger.DebugContext(ctx, "session loop started", "login_ack", string(m.opts.LoginAck))

	for {
		select {
		case <-ctx.Done():
			m.logger.DebugContext(ctx, "session loop stopped")
			return nil
		case t := <-m.triggers:
			m.handle(ctx, t)
		}
	}
}

func (m *Machine) shutdown() {
	m.stopTimer()
	for _, unsub := range m.unsubs {
		unsub()
	}
	close(m.done)
	m.inflight.Wait()
}

// Done is closed when Run returns.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// Submit routes one line of user input to the machine.
func (m *Machine) Submit(text string) {
	m.post(inputTrigger{text: text})
}

// Notify appends an informational line to the message log from outside the
// loop, for example a connect failure reported by the caller.
func (m *Machine) Notify(text string) {
	m.post(noticeTrigger{text: text})
}

// Log returns the message log. Callers must treat it as read-only.
func (m *Machine) Log() *MessageLog {
	return m.log
}

// Dispatcher returns the command dispatcher.
func (m *Machine) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// Snapshot returns the latest published session status.
func (m *Machine) Snapshot() Snapshot {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snap
}

// Changes receives a value after every handled trigger. Signals coalesce.
func (m *Machine) Changes() <-chan struct{} {
	return m.changes
}

func (m *Machine) post(t trigger) {
	select {
	case m.triggers <- t:
	case <-m.done:
	}
}

func (m *Machine) publish() {
	m.snapMu.Lock()
	m.snap = Snapshot{
		State:     m.state,
		Connected: m.connected,
		LoggedIn:  m.loggedIn,
		Prompt:    m.state.Prompt(),
		Secret:    m.state.Secret(),
	}
	m.snapMu.Unlock()

	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *Machine) handle(ctx context.Context, t trigger) {
	switch t := t.(type) {
	case inputTrigger:
		m.handleInput(ctx, t.text)
	case eventTrigger:
		EventsReceived.WithLabelValues(t.event).Inc()
		m.handleEvent(ctx, t.event, t.data)
	case connTrigger:
		m.handleConnection(ctx, t.state)
	case identityResult:
		m.handleIdentityResult(ctx, t)
	case deadlineTrigger:
		m.handleDeadline(ctx, t.attempt)
	case noticeTrigger:
		m.log.append(t.text)
	}
	m.publish()
}

func (m *Machine) handleInput(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	switch {
	case m.state == StateIdle:
		switch strings.TrimSpace(text) {
		case "register":
			m.beginRegistration(ctx)
		case "login":
			m.beginLogin(ctx)
		default:
			m.log.append(MsgMustAuthenticate)
		}
	case m.state.Awaiting():
		m.log.append(MsgPleaseWait)
	case m.state.Registering():
		m.registrationStep(ctx, text)
	case m.state.LoggingIn():
		m.loginStep(ctx, text)
	case m.state == StateAuthenticated:
		if err := m.dispatcher.Dispatch(ctx, text); err != nil {
			m.log.append(sendFailure(err))
		}
	}
}

func (m *Machine) handleEvent(ctx context.Context, event string, data json.RawMessage) {
	switch event {
	case EventMessage:
		m.onMessage(ctx, data)
	case EventCreateUser:
		m.onCreateUser(ctx)
	case EventRegistrationComplete:
		m.onRegistrationComplete(ctx, data)
	case EventRegistrationError:
		m.onRegistrationError(ctx, data)
	case EventLoginResult:
		m.onLoginResult(ctx, data)
	}
}

// onMessage logs every generic message verbatim, then checks for eviction.
func (m *Machine) onMessage(ctx context.Context, data json.RawMessage) {
	text := decodeText(data)
	m.log.append(text)
	if text != ForcedLogoutNotice {
		return
	}

	switch {
	case m.state == StateAuthenticated:
		errutil.LogWarn(ctx, m.logger, "session evicted by server", ErrForcedLogout(m.state))
		m.reset(ctx)
		m.log.append(MsgLoggedOut)
	case m.state == StateAwaitingLoginOutcome && m.loginSent:
		errutil.LogWarn(ctx, m.logger, "login rejected by server", ErrForcedLogout(m.state))
		m.reset(ctx)
	}
}

func (m *Machine) handleConnection(ctx context.Context, state conn.State) {
	connected := state == conn.Connected
	if connected == m.connected {
		return
	}
	m.connected = connected
	if connected {
		m.log.append(MsgConnected)
		return
	}

	m.log.append(MsgDisconnected)
	if m.state == StateAuthenticated || m.state.Awaiting() {
		m.logger.InfoContext(ctx, "session reset after disconnect", "state", m.state.String())
		m.reset(ctx)
	}
}

func (m *Machine) handleIdentityResult(ctx context.Context, r identityResult) {
	if r.attempt != m.attempt {
		m.logger.DebugContext(ctx, "discarding stale identity result", "operation", r.op)
		return
	}
	switch r.op {
	case identity.OpCreateAccount:
		m.accountCreated(ctx, r)
	case identity.OpAuthenticate:
		m.authenticated(ctx, r)
	}
}

// callIdentity runs an identity provider call off the loop and posts the
// result back tagged with the current attempt.
func (m *Machine) callIdentity(ctx context.Context, op, email, secret string) {
	attempt := m.attempt
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()

		start := time.Now()
		var token identity.Token
		var err error
		switch op {
		case identity.OpCreateAccount:
			token, err = m.provider.CreateAccount(ctx, email, secret)
		default:
			token, err = m.provider.Authenticate(ctx, email, secret)
		}
		recordIdentityCall(op, err, time.Since(start))

		m.post(identityResult{op: op, attempt: attempt, token: token, err: err})
	}()
}

func (m *Machine) send(ctx context.Context, event string, payload any) error {
	err := m.ch.Send(ctx, event, payload)
	EventsSent.WithLabelValues(event, statusOf(err)).Inc()
	if err != nil {
		errutil.LogWarn(ctx, m.logger, "send failed", err)
	}
	//nolint:wrapcheck // channel returns oops errors
	return err
}

func sendFailure(err error) string {
	if errutil.Code(err) == conn.CodeNotConnected {
		return MsgNotConnected
	}
	return MsgSendFailed
}

// transition moves to next if the table allows it. Entering Idle or
// Authenticated ends the current attempt and drops both drafts.
func (m *Machine) transition(ctx context.Context, next State) {
	from := m.state
	if !from.CanTransition(next) {
		m.logger.ErrorContext(ctx, "illegal session transition",
			"from", from.String(), "to", next.String())
		return
	}

	m.state = next
	if next == StateIdle || next == StateAuthenticated {
		m.endAttempt()
	}
	m.dispatcher.setActive(next == StateAuthenticated)

	Transitions.WithLabelValues(from.String(), next.String()).Inc()
	m.logger.DebugContext(ctx, "session transition", "from", from.String(), "to", next.String())
}

func (m *Machine) endAttempt() {
	m.attempt++
	m.reg = nil
	m.login = nil
	m.creating = false
	m.loginSent = false
	m.stopTimer()
}

// reset abandons the current dialog or session and returns to Idle.
func (m *Machine) reset(ctx context.Context) {
	m.loggedIn = false
	m.transition(ctx, StateIdle)
}

func (m *Machine) armTimer(d time.Duration) {
	m.stopTimer()
	attempt := m.attempt
	m.timer = time.AfterFunc(d, func() {
		m.post(deadlineTrigger{attempt: attempt})
	})
}

func (m *Machine) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
