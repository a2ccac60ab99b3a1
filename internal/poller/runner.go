package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/livewatch/internal/metrics"
	"github.com/jpalmerr/livewatch/internal/store"
	"github.com/jpalmerr/livewatch/live"
)

// DefaultPaceDelay is the pause between two entities in a cycle.
const DefaultPaceDelay = time.Second

// StatusResolver resolves the current live status of an entity.
type StatusResolver interface {
	Resolve(ctx context.Context, e live.Entity) (live.Info, error)
}

// Dispatcher delivers a rising-edge event. It is called synchronously from
// the cycle, at most once per rising edge.
type Dispatcher interface {
	Notify(ctx context.Context, event live.TransitionEvent) error
}

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	// Checked counts entities the cycle attempted to resolve.
	Checked int

	// Failed counts entities whose status could not be resolved.
	Failed int

	// Live counts entities resolved as live this cycle.
	Live int

	// Rising and Falling count state transitions.
	Rising  int
	Falling int

	// Notified counts rising edges whose notification was delivered.
	Notified int

	Duration time.Duration

	// Skipped is true when the call was refused because another cycle was
	// still running.
	Skipped bool
}

// Runner executes poll cycles.
//
// Runner is the only writer of its state store. RunCycle is single-flight: a
// call made while another cycle is in progress returns immediately with
// [CycleReport.Skipped] set.
type Runner struct {
	resolver   StatusResolver
	store      store.Store
	dispatcher Dispatcher
	pace       time.Duration
	logger     *slog.Logger
	recorder   metrics.Recorder
	now        func() time.Time

	inFlight sync.Mutex
}

// NewRunner creates a [Runner].
//
// Parameters:
//   - resolver: source of live status per entity
//   - st: state store, mutated only by this runner
//   - dispatcher: notification sink for rising edges
//   - pace: delay between entities (0 disables pacing)
//   - logger: nil uses slog.Default()
//   - recorder: nil records nothing
func NewRunner(resolver StatusResolver, st store.Store, dispatcher Dispatcher, pace time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		resolver:   resolver,
		store:      st,
		dispatcher: dispatcher,
		pace:       pace,
		logger:     logger,
		recorder:   metrics.OrNoop(recorder),
		now:        time.Now,
	}
}

// RunCycle checks every entity once, in list order.
//
// A failure (or panic) while processing one entity never prevents the
// following entities from being processed. Cancelling ctx abandons the rest
// of the cycle; state writes already made stay in place.
func (r *Runner) RunCycle(ctx context.Context, entities []live.Entity) CycleReport {
	if !r.inFlight.TryLock() {
		r.recorder.IncCycleSkipped()
		r.logger.Warn("poll cycle still running, skipping")
		return CycleReport{Skipped: true}
	}
	defer r.inFlight.Unlock()

	start := time.Now()
	var report CycleReport

	for i, e := range entities {
		if ctx.Err() != nil {
			r.logger.Info("poll cycle abandoned", "remaining", len(entities)-i)
			break
		}

		r.processSafe(ctx, e, &report)

		if i < len(entities)-1 && !r.wait(ctx) {
			r.logger.Info("poll cycle abandoned", "remaining", len(entities)-i-1)
			break
		}
	}

	report.Duration = time.Since(start)
	r.recorder.ObserveCycle(report.Duration)

	r.logger.Info("poll cycle completed",
		"checked", report.Checked,
		"live", report.Live,
		"failed", report.Failed,
		"notified", report.Notified,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report
}

// wait sleeps for the pacing delay. It returns false if ctx ends first.
func (r *Runner) wait(ctx context.Context) bool {
	if r.pace <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(r.pace)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// processSafe processes one entity with panic recovery.
func (r *Runner) processSafe(ctx context.Context, e live.Entity, report *CycleReport) {
	defer func() {
		if p := recover(); p != nil {
			correlationID := uuid.NewString()
			report.Failed++
			r.logger.Error("entity processing panic",
				"correlation_id", correlationID,
				"entity", e.ID,
				"panic", fmt.Sprintf("%v", p),
				"stack", string(debug.Stack()),
			)
		}
	}()
	r.process(ctx, e, report)
}

// process resolves one entity and applies the state machine:
//
//	offline → live:    notify, then record live
//	live    → offline: record offline
//	unchanged:         nothing, unless the entity had no entry yet
//
// A failed resolution leaves the previous state untouched.
func (r *Runner) process(ctx context.Context, e live.Entity, report *CycleReport) {
	report.Checked++

	info, err := r.resolver.Resolve(ctx, e)
	if err != nil {
		report.Failed++
		r.recorder.IncResolution(metrics.OutcomeFailed)
		r.logger.Warn("live status unavailable, keeping previous state",
			"entity", e.ID,
			"name", e.Name(),
			"error", err,
		)
		return
	}
	r.recorder.IncResolution(metrics.OutcomeSuccess)

	prev, known := r.store.Lookup(e.ID)

	r.logger.Debug("live status resolved",
		"entity", e.ID,
		"name", e.Name(),
		"live", info.IsLive,
		"previous", prev,
	)

	switch {
	case !prev && info.IsLive:
		report.Rising++
		event := live.TransitionEvent{
			ID:         uuid.NewString(),
			Entity:     e,
			Info:       info,
			DetectedAt: r.now(),
		}
		r.logger.Info("went live",
			"entity", e.ID,
			"name", e.Name(),
			"event_id", event.ID,
			"title", info.Title,
		)
		if err := r.notify(ctx, event); err != nil {
			r.logger.Error("live notification failed, not retried",
				"entity", e.ID,
				"event_id", event.ID,
				"error", err,
			)
		} else {
			report.Notified++
		}
		r.store.Set(e.ID, true)

	case prev && !info.IsLive:
		report.Falling++
		r.logger.Info("went offline", "entity", e.ID, "name", e.Name())
		r.store.Set(e.ID, false)

	case !known:
		r.store.Set(e.ID, info.IsLive)
	}

	if info.IsLive {
		report.Live++
	}
	r.recorder.SetLive(e.ID, info.IsLive)
}

// notify calls the dispatcher, converting a panic into an error so the state
// update that follows always happens.
func (r *Runner) notify(ctx context.Context, event live.TransitionEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			correlationID := uuid.NewString()
			r.logger.Error("dispatcher panic",
				"correlation_id", correlationID,
				"event_id", event.ID,
				"panic", fmt.Sprintf("%v", p),
				"stack", string(debug.Stack()),
			)
			err = &live.DispatchError{
				EventID: event.ID,
				Sink:    "dispatcher",
				Err:     fmt.Errorf("dispatcher panic (correlation_id: %s)", correlationID),
			}
		}
	}()
	return r.dispatcher.Notify(ctx, event)
}
