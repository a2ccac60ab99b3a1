// Package metrics exposes poll-cycle observability hooks.
//
// The engine records through the [Recorder] interface; [NoopRecorder] is the
// default and [PrometheusRecorder] backs the /metrics endpoint.
package metrics

import "time"

// Outcome labels used across counters.
const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeFatal   = "fatal"
	OutcomeFailed  = "failed"
)

// Recorder defines observability hooks for the monitoring engine.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// ObserveTier records one attempt of a resolution tier.
	ObserveTier(tier, outcome string, d time.Duration)
	// IncResolution counts a finished entity resolution: success or failed.
	IncResolution(outcome string)
	// ObserveCycle records a completed poll cycle.
	ObserveCycle(d time.Duration)
	// IncCycleSkipped counts ticks dropped because a cycle was still running.
	IncCycleSkipped()
	// IncNotification counts notification attempts: success or failed.
	IncNotification(outcome string)
	// SetLive publishes the last known state of an entity.
	SetLive(entityID string, live bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTier(string, string, time.Duration) {}
func (NoopRecorder) IncResolution(string)                      {}
func (NoopRecorder) ObserveCycle(time.Duration)                {}
func (NoopRecorder) IncCycleSkipped()                          {}
func (NoopRecorder) IncNotification(string)                    {}
func (NoopRecorder) SetLive(string, bool)                      {}

// OrNoop returns r, or a [NoopRecorder] when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
