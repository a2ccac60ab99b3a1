package config

import (
	"fmt"
	"log/slog"

	"github.com/jpalmerr/livewatch"
	"github.com/jpalmerr/livewatch/internal/fetch"
	"github.com/jpalmerr/livewatch/internal/notify"
	"github.com/jpalmerr/livewatch/live"
)

// BuildEntities converts the streamer list into entities, preserving order.
func BuildEntities(cfg *Config) ([]live.Entity, error) {
	entities := make([]live.Entity, 0, len(cfg.Streamers))
	for i, s := range cfg.Streamers {
		kind, err := live.ParseIDKind(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("streamers[%d] (%s): %w", i, s.ID, err)
		}
		entities = append(entities, live.Entity{
			ID:          s.ID,
			DisplayName: s.Name,
			Kind:        kind,
		})
	}
	return entities, nil
}

// BuildNotifierConfig converts the notifier section for [notify.Build].
func BuildNotifierConfig(cfg *Config) notify.Config {
	n := cfg.Notifier
	return notify.Config{
		Type:      n.Type,
		Token:     n.Token,
		ChannelID: n.ChannelID,
		ChatID:    n.ChatID,
		URL:       n.URL,
		Method:    n.Method,
		Mention:   n.Mention,
	}
}

// BuildOptions converts parsed configuration into [livewatch.Option] values.
//
// The notifier is constructed and validated here, so incomplete credentials
// fail before anything starts.
func BuildOptions(cfg *Config, logger *slog.Logger) ([]livewatch.Option, error) {
	entities, err := BuildEntities(cfg)
	if err != nil {
		return nil, err
	}

	notifier, err := notify.Build(BuildNotifierConfig(cfg), fetch.NewClient("livewatch"))
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}

	opts := []livewatch.Option{
		livewatch.WithEntities(entities...),
		livewatch.WithNotifier(notifier),
		livewatch.WithPort(cfg.Port),
		livewatch.WithPollInterval(cfg.PollInterval.Duration()),
		livewatch.WithPaceDelay(cfg.PaceDelay.Duration()),
		livewatch.WithRequestTimeout(cfg.RequestTimeout.Duration()),
	}
	if logger != nil {
		opts = append(opts, livewatch.WithLogger(logger))
	}
	if cfg.APIBaseURL != "" {
		opts = append(opts, livewatch.WithAPIBaseURL(cfg.APIBaseURL))
	}
	if cfg.StartupNoticeEnabled() {
		opts = append(opts, livewatch.WithStartupNotice(cfg.StartupNoticeDelay.Duration()))
	}
	if cfg.KeepAlive.URL != "" {
		opts = append(opts, livewatch.WithKeepAlive(cfg.KeepAlive.URL, cfg.KeepAlive.Interval.Duration()))
	}

	return opts, nil
}

// SlogLevel maps the configured level name to a [slog.Level].
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
