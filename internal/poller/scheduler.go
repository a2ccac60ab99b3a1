package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// DefaultDrainTimeout bounds how long Stop waits for an in-flight cycle.
const DefaultDrainTimeout = 30 * time.Second

// State is the lifecycle state of a [Scheduler].
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// CycleFunc runs one poll cycle. ctx is cancelled when the scheduler drains.
type CycleFunc func(ctx context.Context)

// Scheduler fires a [CycleFunc] on a fixed period.
//
// The first cycle runs one period after Start, not immediately. A tick that
// falls while the previous cycle is still running is skipped rather than
// queued.
type Scheduler struct {
	interval     time.Duration
	drainTimeout time.Duration
	cycle        CycleFunc
	logger       *slog.Logger

	mu     sync.Mutex
	state  State
	sched  gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a [Scheduler] in the idle state.
//
// Parameters:
//   - interval: time between cycle starts
//   - cycle: work to run on every tick
//   - logger: nil uses slog.Default()
func NewScheduler(interval time.Duration, cycle CycleFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval:     interval,
		drainTimeout: DefaultDrainTimeout,
		cycle:        cycle,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the scheduler reaches [StateStopped].
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Start moves the scheduler from idle to running. Cancelling ctx stops it.
//
// Calling Start more than once, or after Stop, is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", s.interval)
	}

	sched, err := gocron.NewScheduler(gocron.WithStopTimeout(s.drainTimeout))
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.tick),
		gocron.WithName("poll-cycle"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to create poll job: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.sched = sched
	s.state = StateRunning
	sched.Start()

	s.logger.Info("scheduler started", "interval", s.interval.String())

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop()
		case <-s.done:
		}
	}()
	return nil
}

// tick runs one cycle with panic recovery so the job keeps firing.
func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	running := s.state == StateRunning
	s.mu.Unlock()

	if !running {
		return
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("poll cycle panic",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", p),
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.cycle(ctx)
}

// Stop drains the scheduler: no new cycle starts, the in-flight cycle's
// context is cancelled and Stop waits for it to return.
//
// Stopping a scheduler that was never started moves it from idle straight
// to stopped: there is no cycle to drain, so it never reports draining.
//
// Stop is idempotent. Concurrent callers all return once the scheduler has
// stopped.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.state = StateStopped
		close(s.done)
		s.mu.Unlock()
		return nil
	case StateDraining, StateStopped:
		s.mu.Unlock()
		<-s.done
		return nil
	}

	s.state = StateDraining
	s.cancel()
	sched := s.sched
	s.mu.Unlock()

	s.logger.Info("scheduler draining")
	err := sched.Shutdown()
	if err != nil {
		s.logger.Warn("scheduler drain incomplete", "error", err)
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	close(s.done)

	s.logger.Info("scheduler stopped")
	return err
}
