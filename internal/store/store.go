package store

// Store defines the per-entity live state operations used by the poll cycle.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Init records every id as offline, replacing any previous state.
	Init(ids []string)

	// Lookup returns the last known state of id and whether one was recorded.
	Lookup(id string) (live bool, known bool)

	// Set records the state of id and reports whether it changed.
	Set(id string, live bool) (changed bool)

	// Snapshot returns a copy of all recorded states.
	Snapshot() map[string]bool
}
