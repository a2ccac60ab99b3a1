package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/livewatch/internal/metrics"
	"github.com/jpalmerr/livewatch/live"
)

// DefaultDispatchTimeout bounds a single delivery attempt.
const DefaultDispatchTimeout = 10 * time.Second

// Dispatcher delivers events through a [Notifier] with a per-call timeout.
//
// Dispatcher never retries: a failed delivery is reported once as a
// *live.DispatchError and the caller moves on.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewDispatcher wraps n. A non-positive timeout selects [DefaultDispatchTimeout].
func NewDispatcher(n Notifier, timeout time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifier: n,
		timeout:  timeout,
		logger:   logger,
		recorder: metrics.OrNoop(recorder),
	}
}

// Notify delivers event. The returned error, when non-nil, is a *live.DispatchError.
func (d *Dispatcher) Notify(ctx context.Context, event live.TransitionEvent) error {
	err := d.call(ctx, event.ID, func(ctx context.Context) error {
		return d.notifier.Notify(ctx, event)
	})
	if err != nil {
		d.recorder.IncNotification(metrics.OutcomeFailed)
		return err
	}

	d.recorder.IncNotification(metrics.OutcomeSuccess)
	d.logger.Info("notification sent",
		"type", d.notifier.Type(),
		"event_id", event.ID,
		"entity", event.Entity.ID,
		"name", event.Entity.Name(),
	)
	return nil
}

// Announce delivers the startup announcement.
func (d *Dispatcher) Announce(ctx context.Context, a Announcement) error {
	return d.call(ctx, "startup", func(ctx context.Context) error {
		return d.notifier.Announce(ctx, a)
	})
}

// Close releases the notifier's connections.
func (d *Dispatcher) Close() {
	d.notifier.Close()
}

// call runs fn with the dispatch timeout and panic recovery.
func (d *Dispatcher) call(ctx context.Context, eventID string, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			d.logger.Error("notifier panic",
				"correlation_id", correlationID,
				"type", d.notifier.Type(),
				"event_id", eventID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = &live.DispatchError{
				EventID: eventID,
				Sink:    d.notifier.Type(),
				Err:     fmt.Errorf("notifier panic (correlation_id: %s)", correlationID),
			}
		}
	}()

	if err := fn(ctx); err != nil {
		return &live.DispatchError{EventID: eventID, Sink: d.notifier.Type(), Err: err}
	}
	return nil
}
