// Package live defines the data model shared by the livewatch engine.
//
// The types here are deliberately plain values: an [Entity] is configured
// once at startup, an [Info] is produced fresh by every successful status
// resolution, and a [TransitionEvent] exists only for the duration of a
// single notification call.
package live

import (
	"fmt"
	"strings"
	"time"
)

// IDKind describes what an entity identifier refers to upstream.
type IDKind string

const (
	// KindUser identifies a streamer by user id. Resolution looks the
	// streamer's room up first.
	KindUser IDKind = "user"

	// KindRoom identifies a live room directly by room id.
	KindRoom IDKind = "room"
)

// String returns the string representation of the kind.
func (k IDKind) String() string {
	return string(k)
}

// Valid reports whether k is one of the known kinds.
func (k IDKind) Valid() bool {
	return k == KindUser || k == KindRoom
}

// ParseIDKind parses a kind name case-insensitively.
// An empty string parses as [KindUser], matching the configuration default.
func ParseIDKind(s string) (IDKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "user", "uid", "mid":
		return KindUser, nil
	case "room", "room_id", "roomid":
		return KindRoom, nil
	default:
		return "", fmt.Errorf("unknown id kind %q (expected 'user' or 'room')", s)
	}
}

// Entity is one monitored streamer or room.
//
// Entities are immutable after configuration load. ID must be unique within
// the monitored list; the state store is keyed by it.
type Entity struct {
	// ID is the upstream identifier (user id or room id, per Kind).
	ID string

	// DisplayName is the human-readable name used in notifications and logs.
	DisplayName string

	// Kind tells the resolver how to interpret ID.
	Kind IDKind
}

// Name returns DisplayName, or ID when no display name is configured.
func (e Entity) Name() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.ID
}

// Info is the normalized live status of a room at resolution time.
type Info struct {
	// IsLive reports whether the room is currently broadcasting.
	IsLive bool

	// Title is the stream title, or a placeholder when upstream has none.
	Title string

	// CoverURL is the cover or keyframe image. Empty when unavailable.
	CoverURL string

	// RoomURL is the public URL of the live room.
	RoomURL string

	// RoomID is the resolved upstream room id.
	RoomID string

	// Online is the upstream viewer count. Zero when unavailable.
	Online int
}

// TransitionEvent describes a rising edge (offline to live) for one entity.
//
// Events are built only by the poll cycle, passed once to the notifier,
// then discarded.
type TransitionEvent struct {
	// ID correlates log lines for this event.
	ID string

	// Entity is the entity that went live.
	Entity Entity

	// Info is the resolution result that revealed the transition.
	// Info.IsLive is always true.
	Info Info

	// DetectedAt is when the cycle observed the transition.
	DetectedAt time.Time
}
