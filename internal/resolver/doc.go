// Package resolver turns a monitored entity into a normalized [live.Info].
//
// Resolution walks an ordered list of [Tier] strategies. Each tier returns a
// tagged [Result]: success stops the walk, retry moves on to the next
// applicable tier, and terminal (the caller's context is gone) aborts it.
// When no tier succeeds the caller gets a [live.ResolutionError] and must
// treat the entity's status as unknown for this cycle.
//
// The default chain targets the Bilibili Live API:
//
//   - room-detail: room detail by room id (room entities)
//   - user-room: room lookup by user id, refined by a room detail query (user entities)
//   - room-init: legacy room init by user id (user entities, last resort)
package resolver
