// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/holoclient/internal/conn"
	"github.com/holomush/holoclient/internal/identity"
)

type sentEvent struct {
	event string
	data  json.RawMessage
}

// fakeChannel stands in for conn.Manager. emit and setConnected play the
// server side.
type fakeChannel struct {
	mu        sync.Mutex
	connected bool
	sendErr   error
	sent      []sentEvent
	handlers  map[string][]conn.Handler
	observers []conn.Observer
}

func newFakeChannel(connected bool) *fakeChannel {
	return &fakeChannel{connected: connected, handlers: make(map[string][]conn.Handler)}
}

func (f *fakeChannel) Send(_ context.Context, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return conn.ErrNotConnected(event)
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return conn.ErrEncode(event, err)
	}
	f.sent = append(f.sent, sentEvent{event: event, data: data})
	return nil
}

func (f *fakeChannel) On(event string, fn conn.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], fn)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, event)
	}
}

func (f *fakeChannel) Observe(fn conn.Observer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

func (f *fakeChannel) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// emit delivers an event to every handler and returns how many ran.
func (f *fakeChannel) emit(event string, payload any) int {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	handlers := append([]conn.Handler(nil), f.handlers[event]...)
	f.mu.Unlock()
	for _, fn := range handlers {
		fn(data)
	}
	return len(handlers)
}

// setConnected notifies every observer and returns how many ran.
func (f *fakeChannel) setConnected(connected bool) int {
	f.mu.Lock()
	f.connected = connected
	observers := append([]conn.Observer(nil), f.observers...)
	f.mu.Unlock()

	state := conn.Disconnected
	if connected {
		state = conn.Connected
	}
	for _, fn := range observers {
		fn(state)
	}
	return len(observers)
}

func (f *fakeChannel) setSendErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

// sentNamed returns the payloads sent for event, in order.
func (f *fakeChannel) sentNamed(event string) []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []json.RawMessage
	for _, s := range f.sent {
		if s.event == event {
			out = append(out, s.data)
		}
	}
	return out
}

func (f *fakeChannel) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// mockProvider is a mock for identity.Provider.
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateAccount(ctx context.Context, email, secret string) (identity.Token, error) {
	args := m.Called(ctx, email, secret)
	return args.Get(0).(identity.Token), args.Error(1)
}

func (m *mockProvider) Authenticate(ctx context.Context, email, secret string) (identity.Token, error) {
	args := m.Called(ctx, email, secret)
	return args.Get(0).(identity.Token), args.Error(1)
}

var errBoom = errors.New("boom")
