// Package server provides the liveness HTTP server and the keep-alive pinger.
//
// Endpoints:
//
//   - "/": static "running" page from the embedded dashboard assets
//   - "/healthz": JSON health summary
//   - "/metrics": Prometheus exposition, when a handler is configured
//
// None of the handlers read or change monitoring state. The server runs on
// its own goroutines and is never blocked by a poll cycle.
package server
