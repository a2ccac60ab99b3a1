// Package poller drives the periodic live-status checks.
//
// The main components are:
//
//   - [Runner]: runs one poll cycle, visiting entities sequentially, diffing
//     each resolution against the state store and dispatching a notification
//     on every rising edge
//   - [Scheduler]: fires the cycle on a fixed period with an explicit
//     Idle → Running → Draining → Stopped lifecycle
//
// Cycles never overlap. The scheduler skips a tick that would start while the
// previous cycle is still running, and the runner itself refuses a concurrent
// call.
package poller
