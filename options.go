package livewatch

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/livewatch/internal/notify"
	"github.com/jpalmerr/livewatch/live"
)

// watcherConfig holds mutable state during Watcher construction.
type watcherConfig struct {
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

// Option is a function that configures a [Watcher] during construction.
//
// Options return an error if validation fails.
type Option func(*watcherConfig) error

// WithEntity adds a single streamer to the monitored list.
func WithEntity(e live.Entity) Option {
	return func(cfg *watcherConfig) error {
		cfg.entities = append(cfg.entities, e)
		return nil
	}
}

// WithEntities adds streamers to the monitored list, in order.
//
// Entities are checked in the order they were added.
//
// Example:
//
//	w, err := livewatch.New(
//	    livewatch.WithEntities(
//	        live.Entity{ID: "12345", DisplayName: "Someone"},
//	        live.Entity{ID: "889", Kind: live.KindRoom},
//	    ),
//	    livewatch.WithNotifier(n),
//	)
func WithEntities(entities ...live.Entity) Option {
	return func(cfg *watcherConfig) error {
		cfg.entities = append(cfg.entities, entities...)
		return nil
	}
}

// WithNotifier sets the channel that receives live notifications. Required.
func WithNotifier(n notify.Notifier) Option {
	return func(cfg *watcherConfig) error {
		if n == nil {
			return errors.New("notifier cannot be nil")
		}
		cfg.notifier = n
		return nil
	}
}

// WithPollInterval sets the time between poll cycles. Defaults to 60 seconds.
//
// Returns an error if the duration is zero or negative.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *watcherConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithPaceDelay sets the pause between two streamers within a cycle.
// Defaults to 1 second; 0 disables pacing.
func WithPaceDelay(d time.Duration) Option {
	return func(cfg *watcherConfig) error {
		if d < 0 {
			return errors.New("pace delay cannot be negative")
		}
		cfg.paceDelay = d
		return nil
	}
}

// WithRequestTimeout bounds each upstream query and each notification.
// Defaults to 10 seconds.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *watcherConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithAPIBaseURL overrides the upstream live API host.
func WithAPIBaseURL(u string) Option {
	return func(cfg *watcherConfig) error {
		if u == "" {
			return errors.New("api base url cannot be empty")
		}
		cfg.apiBaseURL = u
		return nil
	}
}

// WithPort sets the liveness server port. Defaults to 8080; 0 picks a free
// port.
//
// Returns an error if the port is outside the valid range (0-65535).
func WithPort(port int) Option {
	return func(cfg *watcherConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *watcherConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStartupNotice sends a one-time announcement listing the monitored
// streamers, delay after Start. The announcement is independent of the poll
// schedule.
func WithStartupNotice(delay time.Duration) Option {
	return func(cfg *watcherConfig) error {
		if delay < 0 {
			return errors.New("startup notice delay cannot be negative")
		}
		cfg.startupNotice = true
		cfg.startupNoticeDelay = delay
		return nil
	}
}

// WithKeepAlive pings url every interval, on its own schedule.
func WithKeepAlive(url string, interval time.Duration) Option {
	return func(cfg *watcherConfig) error {
		if url == "" {
			return errors.New("keep-alive url cannot be empty")
		}
		if interval <= 0 {
			return errors.New("keep-alive interval must be positive")
		}
		cfg.keepAliveURL = url
		cfg.keepAliveInterval = interval
		return nil
	}
}

// WithMetricsRegistry registers metrics on reg instead of a private registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(cfg *watcherConfig) error {
		if reg == nil {
			return errors.New("metrics registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}

// WithTransitionCallback registers a function invoked for every rising edge,
// after the notification attempt and whatever its outcome.
//
// Callbacks run synchronously on the poll cycle; keep them fast. A panicking
// callback is recovered and logged.
//
// Example:
//
//	w, err := livewatch.New(
//	    livewatch.WithEntities(entities...),
//	    livewatch.WithNotifier(n),
//	    livewatch.WithTransitionCallback(func(ev live.TransitionEvent) {
//	        log.Printf("%s went live: %s", ev.Entity.Name(), ev.Info.Title)
//	    }),
//	)
func WithTransitionCallback(cb func(live.TransitionEvent)) Option {
	return func(cfg *watcherConfig) error {
		if cb == nil {
			return errors.New("transition callback cannot be nil")
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}

// WithTitle sets the name shown on the running page.
func WithTitle(title string) Option {
	return func(cfg *watcherConfig) error {
		cfg.title = title
		return nil
	}
}
