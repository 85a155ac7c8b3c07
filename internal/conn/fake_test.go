// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package conn

import (
	"context"
	"errors"
	"sync"
)

// pipeStream is an in-memory Stream. The test plays the server through
// toClient / fromClient.
type pipeStream struct {
	toClient   chan Envelope
	fromClient chan Envelope
	closed     chan struct{}
	closeOnce  sync.Once
}

func newPipeStream() *pipeStream {
	return &pipeStream{
		toClient:   make(chan Envelope, 16),
		fromClient: make(chan Envelope, 16),
		closed:     make(chan struct{}),
	}
}

func (p *pipeStream) Read(ctx context.Context) (Envelope, error) {
	select {
	case env := <-p.toClient:
		return env, nil
	case <-p.closed:
		return Envelope{}, ErrClosed()
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

func (p *pipeStream) Write(ctx context.Context, env Envelope) error {
	select {
	case <-p.closed:
		return errors.New("write on closed pipe")
	default:
	}
	select {
	case p.fromClient <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeStream) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

// fakeTransport hands out pipe streams, failing the first len(failures) dials.
type fakeTransport struct {
	mu       sync.Mutex
	failures []error
	dials    int
	streams  []*pipeStream
}

func (f *fakeTransport) Dial(_ context.Context) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	s := newPipeStream()
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeTransport) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func (f *fakeTransport) last() *pipeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[len(f.streams)-1]
}
