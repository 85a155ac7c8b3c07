// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import "sync"

// MessageLog is the ordered, append-only list of lines shown to the user.
// The machine is the only writer; readers may call any exported method
// concurrently.
type MessageLog struct {
	mu      sync.RWMutex
	entries []string
}

// NewMessageLog creates an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

func (l *MessageLog) append(lines ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, lines...)
}

// Len returns the number of entries.
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of every entry in append order.
func (l *MessageLog) Entries() []string {
	return l.Since(0)
}

// Since returns a copy of the entries at index n and later.
func (l *MessageLog) Since(n int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(l.entries) {
		return nil
	}
	out := make([]string, len(l.entries)-n)
	copy(out, l.entries[n:])
	return out
}
