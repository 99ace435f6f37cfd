// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "sync"

// Store serializes transitions onto the chat state and hands out immutable
// snapshots. It is the only writer of chat state in the process.
//
// The mutex plays the role the single UI thread plays in an event-driven
// client: transitions run to completion one at a time, so each one is atomic
// by construction. Store is an explicit, constructed instance passed to its
// consumers - there is no package-level global.
type Store struct {
	mu      sync.Mutex
	state   State
	changed chan struct{}
}

// NewStore creates a store holding the empty initial state.
func NewStore() *Store {
	return &Store{
		state:   NewState(),
		changed: make(chan struct{}, 1),
	}
}

// Apply runs one transition through the reducer and notifies watchers.
func (s *Store) Apply(t Transition) {
	s.mu.Lock()
	s.state = reduce(s.state, t)
	s.mu.Unlock()

	// Coalesced notification: a pending signal already covers this change.
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// State returns the current snapshot. Snapshots are immutable; readers may
// hold them across further Applies without copying.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Changed returns a channel that receives a signal after state changes.
// Signals are coalesced: one receive may cover several transitions, so
// consumers should re-read State rather than count signals.
func (s *Store) Changed() <-chan struct{} {
	return s.changed
}
