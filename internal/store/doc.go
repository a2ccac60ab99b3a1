// Package store holds the last known live state of each monitored entity.
//
// The poll cycle is the only writer. [MemoryStore] still guards its map with
// a read/write mutex so that read-only snapshots (logs, health output) can be
// taken from other goroutines without racing the cycle.
//
// State is memory-resident and starts empty on every process start; an
// absent entry reads as offline.
package store
