package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/jpalmerr/livewatch/internal/fetch"
)

// DefaultKeepAliveInterval is used when no interval is configured.
const DefaultKeepAliveInterval = 5 * time.Minute

const keepAliveTimeout = 10 * time.Second

// KeepAlive periodically requests a URL, usually the service's own public
// liveness page, so that hosts which idle out quiet services keep it awake.
type KeepAlive struct {
	client   *fetch.Client
	url      string
	interval time.Duration
	logger   *slog.Logger
}

// NewKeepAlive creates a [KeepAlive]. A non-positive interval selects
// [DefaultKeepAliveInterval].
func NewKeepAlive(client *fetch.Client, url string, interval time.Duration, logger *slog.Logger) *KeepAlive {
	if interval <= 0 {
		interval = DefaultKeepAliveInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KeepAlive{
		client:   client,
		url:      url,
		interval: interval,
		logger:   logger,
	}
}

// Run pings until ctx is cancelled. The first ping happens one interval
// after Run is called.
func (k *KeepAlive) Run(ctx context.Context) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Ping(ctx)
		}
	}
}

// Ping requests the URL once and reports whether it answered with 2xx.
func (k *KeepAlive) Ping(ctx context.Context) bool {
	resp := k.client.Get(ctx, k.url, keepAliveTimeout)
	if err := resp.Err(); err != nil {
		k.logger.Warn("keep-alive ping failed", "url", k.url, "error", err)
		return false
	}
	k.logger.Debug("keep-alive ping", "url", k.url, "latency_ms", resp.Latency.Milliseconds())
	return true
}
