// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package conn

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/holomush/holoclient/pkg/errutil"
)

// State is the connection status broadcast to observers.
type State uint8

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives the raw payload of a named inbound event.
type Handler func(data json.RawMessage)

// Observer receives connection state transitions.
type Observer func(State)

type subscription struct {
	id   uint64
	fn   Handler
	once bool
}

// Manager owns one event channel to the game server. Build one per session.
//
// Handlers and observers for remote events run on the manager's read
// goroutine and must not call Disconnect.
type Manager struct {
	transport    Transport
	attempts     uint64
	backoff      time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger

	dialMu sync.Mutex // serializes Connect

	mu         sync.Mutex // guards stream, cancelRead, readDone
	stream     Stream
	cancelRead context.CancelFunc
	readDone   chan struct{}

	writeMu sync.Mutex

	subMu   sync.Mutex
	subs    map[string][]*subscription
	nextSub uint64

	obsMu     sync.Mutex
	observers []Observer
}

// Option configures a Manager during construction.
type Option func(*Manager)

// WithDialAttempts sets how many times Connect dials before giving up and
// the initial delay between attempts (doubled each retry).
func WithDialAttempts(attempts uint64, backoff time.Duration) Option {
	return func(m *Manager) {
		if attempts > 0 {
			m.attempts = attempts
		}
		if backoff > 0 {
			m.backoff = backoff
		}
	}
}

// WithWriteTimeout bounds each Send.
func WithWriteTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.writeTimeout = d
		}
	}
}

// WithLogger sets the logger used for connection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a disconnected manager.
func NewManager(transport Transport, opts ...Option) *Manager {
	m := &Manager{
		transport:    transport,
		attempts:     1,
		backoff:      250 * time.Millisecond,
		writeTimeout: 5 * time.Second,
		logger:       slog.New(slog.DiscardHandler),
		subs:         make(map[string][]*subscription),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connected reports whether the channel is currently established.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream != nil
}

// Connect establishes the channel. Calling it while connected is a no-op.
// Dials are retried with exponential backoff up to the configured attempts.
func (m *Manager) Connect(ctx context.Context) error {
	m.dialMu.Lock()
	defer m.dialMu.Unlock()

	if m.Connected() {
		return nil
	}

	var stream Stream
	backoff := retry.WithMaxRetries(m.attempts-1, retry.NewExponential(m.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, dialErr := m.transport.Dial(ctx)
		if dialErr != nil {
			DialAttempts.WithLabelValues("error").Inc()
			m.logger.DebugContext(ctx, "dial attempt failed", "error", dialErr)
			return retry.RetryableError(dialErr)
		}
		DialAttempts.WithLabelValues("success").Inc()
		stream = s
		return nil
	})
	if err != nil {
		return ErrDialFailed(m.attempts, err)
	}

	readCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	m.mu.Lock()
	m.stream = stream
	m.cancelRead = cancel
	m.readDone = done
	m.mu.Unlock()

	go m.readLoop(readCtx, stream, done)

	m.logger.InfoContext(ctx, "connected to server")
	m.notify(Connected)
	return nil
}

// Disconnect releases the channel and notifies observers. It waits for the
// read goroutine to exit. Calling it while disconnected is a no-op.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	stream, cancel, done := m.stream, m.cancelRead, m.readDone
	m.stream, m.cancelRead, m.readDone = nil, nil, nil
	m.mu.Unlock()

	if stream == nil {
		return nil
	}

	err := stream.Close()
	cancel()
	<-done

	m.logger.Info("disconnected from server")
	m.notify(Disconnected)
	return err
}

// Send writes a named event. It fails with CONN_NOT_CONNECTED while
// disconnected; nothing is buffered.
func (m *Manager) Send(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return ErrEncode(event, err)
	}

	m.mu.Lock()
	stream := m.stream
	m.mu.Unlock()
	if stream == nil {
		return ErrNotConnected(event)
	}

	ctx, cancel := context.WithTimeout(ctx, m.writeTimeout)
	defer cancel()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	//nolint:wrapcheck // Stream implementations return oops errors
	return stream.Write(ctx, Envelope{Event: event, Data: data})
}

// On registers a durable handler for an inbound event. The returned func
// removes it.
func (m *Manager) On(event string, fn Handler) func() {
	return m.subscribe(event, fn, false)
}

// Once registers a handler that runs for at most one event, then is removed.
func (m *Manager) Once(event string, fn Handler) func() {
	return m.subscribe(event, fn, true)
}

// Observe registers a connection state observer. Observers are called
// synchronously, in registration order, on every transition.
func (m *Manager) Observe(fn Observer) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) subscribe(event string, fn Handler, once bool) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.nextSub++
	sub := &subscription{id: m.nextSub, fn: fn, once: once}
	m.subs[event] = append(m.subs[event], sub)

	return func() { m.unsubscribe(event, sub.id) }
}

func (m *Manager) unsubscribe(event string, id uint64) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	subs := m.subs[event]
	for i, sub := range subs {
		if sub.id == id {
			m.subs[event] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// handlersFor snapshots the handlers for an event and removes once handlers
// in the same critical section, so each fires at most one time.
func (m *Manager) handlersFor(event string) []Handler {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	subs := m.subs[event]
	if len(subs) == 0 {
		return nil
	}
	fns := make([]Handler, 0, len(subs))
	kept := subs[:0:0]
	for _, sub := range subs {
		fns = append(fns, sub.fn)
		if !sub.once {
			kept = append(kept, sub)
		}
	}
	m.subs[event] = kept
	return fns
}

func (m *Manager) notify(state State) {
	ConnectionTransitions.WithLabelValues(state.String()).Inc()

	m.obsMu.Lock()
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.obsMu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

func (m *Manager) readLoop(ctx context.Context, stream Stream, done chan struct{}) {
	defer close(done)

	for {
		env, err := stream.Read(ctx)
		if err != nil {
			m.dropped(ctx, stream, err)
			return
		}
		handlers := m.handlersFor(env.Event)
		if len(handlers) == 0 {
			m.logger.DebugContext(ctx, "no handler for event", "event", env.Event)
			continue
		}
		for _, fn := range handlers {
			fn(env.Data)
		}
	}
}

// dropped handles a read failure. When Disconnect already took the stream
// there is nothing left to do.
func (m *Manager) dropped(ctx context.Context, stream Stream, err error) {
	m.mu.Lock()
	if m.stream != stream {
		m.mu.Unlock()
		return
	}
	cancel := m.cancelRead
	m.stream, m.cancelRead, m.readDone = nil, nil, nil
	m.mu.Unlock()
	cancel()

	if errutil.Code(err) == CodeClosed {
		m.logger.InfoContext(ctx, "server closed connection")
	} else {
		errutil.LogWarn(ctx, m.logger, "connection lost", err)
	}
	if closeErr := stream.Close(); closeErr != nil {
		m.logger.DebugContext(ctx, "error closing stream", "error", closeErr)
	}
	m.notify(Disconnected)
}
