package store

import (
	"sync"
)

// MemoryStore is an in-memory implementation of [Store].
//
// Entries are keyed by entity id; distinct entities must therefore have
// distinct ids, which the configuration loader enforces.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]bool
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]bool),
	}
}

// Init records every id as offline, replacing any previous state.
func (m *MemoryStore) Init(ids []string) {
	states := make(map[string]bool, len(ids))
	for _, id := range ids {
		states[id] = false
	}

	m.mu.Lock()
	m.states = states
	m.mu.Unlock()
}

// Lookup returns the last known state of id and whether one was recorded.
func (m *MemoryStore) Lookup(id string) (bool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	live, ok := m.states[id]
	return live, ok
}

// Set records the state of id and reports whether it changed.
// Recording a state for a previously unknown id counts as a change only when
// the new state is live, since unknown already reads as offline.
func (m *MemoryStore) Set(id string, live bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.states[id]
	m.states[id] = live
	return prev != live
}

// Snapshot returns a copy of all recorded states.
//
// The returned map is a copy; modifications do not affect the store.
func (m *MemoryStore) Snapshot() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := make(map[string]bool, len(m.states))
	for id, live := range m.states {
		snap[id] = live
	}
	return snap
}

// LiveCount returns how many entities are currently recorded as live.
func (m *MemoryStore) LiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, live := range m.states {
		if live {
			n++
		}
	}
	return n
}
