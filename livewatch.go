package livewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/livewatch/dashboard"
	"github.com/jpalmerr/livewatch/internal/fetch"
	"github.com/jpalmerr/livewatch/internal/metrics"
	"github.com/jpalmerr/livewatch/internal/notify"
	"github.com/jpalmerr/livewatch/internal/poller"
	"github.com/jpalmerr/livewatch/internal/resolver"
	"github.com/jpalmerr/livewatch/internal/server"
	"github.com/jpalmerr/livewatch/internal/store"
	"github.com/jpalmerr/livewatch/live"
)

const (
	defaultPollInterval       = 60 * time.Second
	defaultPaceDelay          = poller.DefaultPaceDelay
	defaultRequestTimeout     = 10 * time.Second
	defaultPort               = 8080
	defaultStartupNoticeDelay = 5 * time.Second
)

// Watcher is the main orchestrator: it polls the configured streamers,
// notifies on rising edges and serves the liveness endpoint.
//
// The typical lifecycle is:
//
//	w, err := livewatch.New(
//	    livewatch.WithEntities(entities...),
//	    livewatch.WithNotifier(n),
//	)
//	if err != nil {
//	    slog.Error("failed to create watcher", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	w.Start(ctx) // blocks until context cancelled
type Watcher struct {
	title              string
	entities           []live.Entity
	notifier           notify.Notifier
	pollInterval       time.Duration
	paceDelay          time.Duration
	requestTimeout     time.Duration
	apiBaseURL         string
	port               int
	logger             *slog.Logger
	startupNotice      bool
	startupNoticeDelay time.Duration
	keepAliveURL       string
	keepAliveInterval  time.Duration
	registry           *prometheus.Registry
	callbacks          []func(live.TransitionEvent)
}

// New creates a [Watcher] with the given options.
//
// At least one entity and a notifier are required. Other options have
// defaults:
//   - Poll interval: 60 seconds
//   - Pace delay: 1 second
//   - Request timeout: 10 seconds
//   - Port: 8080
//
// Returns an error if an option is invalid, an entity id is empty or
// duplicated, or an entity kind is unknown.
func New(opts ...Option) (*Watcher, error) {
	cfg := &watcherConfig{
		pollInterval:       defaultPollInterval,
		paceDelay:          defaultPaceDelay,
		requestTimeout:     defaultRequestTimeout,
		port:               defaultPort,
		startupNoticeDelay: defaultStartupNoticeDelay,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.entities) == 0 {
		return nil, errors.New("at least one entity is required")
	}
	if cfg.notifier == nil {
		return nil, errors.New("a notifier is required")
	}

	// ids key the state store, so they must be unique
	seen := make(map[string]bool, len(cfg.entities))
	for i, e := range cfg.entities {
		if e.ID == "" {
			return nil, fmt.Errorf("entity %d: id is required", i)
		}
		if !e.Kind.Valid() {
			return nil, fmt.Errorf("entity %q: unknown kind %q", e.ID, e.Kind)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate entity id: %q", e.ID)
		}
		seen[e.ID] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		title:              cfg.title,
		entities:           cfg.entities,
		notifier:           cfg.notifier,
		pollInterval:       cfg.pollInterval,
		paceDelay:          cfg.paceDelay,
		requestTimeout:     cfg.requestTimeout,
		apiBaseURL:         cfg.apiBaseURL,
		port:               cfg.port,
		logger:             logger,
		startupNotice:      cfg.startupNotice,
		startupNoticeDelay: cfg.startupNoticeDelay,
		keepAliveURL:       cfg.keepAliveURL,
		keepAliveInterval:  cfg.keepAliveInterval,
		registry:           cfg.registry,
		callbacks:          cfg.callbacks,
	}, nil
}

// Start runs the watcher until ctx is cancelled.
//
// Every entity starts offline. The first poll cycle runs one poll interval
// after Start; cycles never overlap. On cancellation the scheduler drains the
// in-flight cycle, the liveness server shuts down and the notifier's
// connections are released.
//
// Returns nil on graceful shutdown. Returns an error if the liveness server
// or the scheduler fails to start.
func (w *Watcher) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	w.logger.Info("livewatch starting",
		"streamers", len(w.entities),
		"interval", w.pollInterval.String(),
		"notifier", w.notifier.Type(),
	)

	registry := w.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	recorder := metrics.NewPrometheusRecorder(registry)

	client := fetch.NewClient("")
	defer client.Close()

	api := resolver.NewAPI(client, resolver.APIConfig{
		BaseURL: w.apiBaseURL,
		Timeout: w.requestTimeout,
	})
	res := resolver.New(resolver.DefaultTiers(api, w.logger), w.logger, recorder)
	w.logger.Debug("resolution chain", "tiers", res.Tiers())

	ids := make([]string, len(w.entities))
	for i, e := range w.entities {
		ids[i] = e.ID
	}
	st := store.NewMemoryStore()
	st.Init(ids)

	dispatcher := notify.NewDispatcher(w.notifier, w.requestTimeout, w.logger, recorder)
	defer dispatcher.Close()

	var sink poller.Dispatcher = dispatcher
	if len(w.callbacks) > 0 {
		sink = &callbackDispatcher{next: dispatcher, callbacks: w.callbacks, logger: w.logger}
	}

	runner := poller.NewRunner(res, st, sink, w.paceDelay, w.logger, recorder)
	scheduler := poller.NewScheduler(w.pollInterval, func(ctx context.Context) {
		runner.RunCycle(ctx, w.entities)
	}, w.logger)

	// the liveness server and background tasks outlive the scheduler
	// slightly so they can be shut down after it drains
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	httpServer := server.NewServer(server.Config{
		Port:      w.port,
		Assets:    dashboard.Assets,
		Title:     w.title,
		Monitored: len(w.entities),
		LiveCount: st.LiveCount,
		Metrics:   metrics.HTTPHandler(registry),
		Logger:    w.logger,
	})
	if err := httpServer.Start(bgCtx); err != nil {
		return fmt.Errorf("failed to start liveness server: %w", err)
	}

	var bg errgroup.Group
	if w.keepAliveURL != "" {
		keepAlive := server.NewKeepAlive(client, w.keepAliveURL, w.keepAliveInterval, w.logger)
		bg.Go(func() error {
			keepAlive.Run(bgCtx)
			return nil
		})
	}

	if w.startupNotice {
		bg.Go(func() error {
			w.announce(bgCtx, dispatcher)
			return nil
		})
	}

	if err := scheduler.Start(ctx); err != nil {
		cancelBg()
		_ = bg.Wait()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	<-ctx.Done()

	if err := scheduler.Stop(); err != nil {
		w.logger.Warn("scheduler stop", "error", err)
	}
	cancelBg()
	_ = bg.Wait()

	w.logger.Info("livewatch stopped",
		"scheduler", scheduler.State().String(),
		"last_state", st.Snapshot(),
	)
	return nil
}

// announce sends the startup notice after the configured delay.
func (w *Watcher) announce(ctx context.Context, d *notify.Dispatcher) {
	timer := time.NewTimer(w.startupNoticeDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	names := make([]string, len(w.entities))
	for i, e := range w.entities {
		names[i] = e.Name()
	}

	if err := d.Announce(ctx, notify.Announcement{Names: names, StartedAt: time.Now()}); err != nil {
		w.logger.Warn("startup notice failed", "error", err)
		return
	}
	w.logger.Info("startup notice sent", "streamers", len(names))
}

// Entities returns a copy of the monitored entities.
func (w *Watcher) Entities() []live.Entity {
	cp := make([]live.Entity, len(w.entities))
	copy(cp, w.entities)
	return cp
}

// Port returns the configured liveness server port.
func (w *Watcher) Port() int {
	return w.port
}

// PollInterval returns the configured interval between poll cycles.
func (w *Watcher) PollInterval() time.Duration {
	return w.pollInterval
}

// callbackDispatcher forwards to next, then fans the event out to callbacks.
type callbackDispatcher struct {
	next      poller.Dispatcher
	callbacks []func(live.TransitionEvent)
	logger    *slog.Logger
}

func (c *callbackDispatcher) Notify(ctx context.Context, event live.TransitionEvent) error {
	err := c.next.Notify(ctx, event)
	for _, cb := range c.callbacks {
		invokeCallbackSafe(cb, event, c.logger)
	}
	return err
}

// invokeCallbackSafe calls a transition callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(live.TransitionEvent), event live.TransitionEvent, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("transition callback panicked",
				"panic", r,
				"entity", event.Entity.ID,
				"event_id", event.ID,
			)
		}
	}()
	cb(event)
}
