// Package livewatch watches Bilibili live streamers and announces when they
// go live.
//
// A [Watcher] polls every configured streamer on a fixed interval, one at a
// time, and compares each reading with the last known state. When a streamer
// moves from offline to live it sends one notification (Discord by default).
// Going offline only updates the state.
//
// # Quick Start
//
//	n, err := notify.Build(notify.Config{
//	    Token:     os.Getenv("DISCORD_TOKEN"),
//	    ChannelID: os.Getenv("CHANNEL_ID"),
//	}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w, err := livewatch.New(
//	    livewatch.WithEntities(live.Entity{ID: "12345", DisplayName: "Someone"}),
//	    livewatch.WithNotifier(n),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	w.Start(ctx) // blocks until context is cancelled
//
// # Status Resolution
//
// Status is resolved through an ordered chain of upstream queries. Room ids
// use the room detail endpoint. User ids look up the user's room first and
// fall back to the legacy room-init endpoint. A streamer whose status cannot
// be resolved keeps its previous state for that cycle.
//
// # Delivery
//
// Notifications are delivered at most once. If delivery fails the streamer
// is still recorded as live, so the same broadcast is not announced twice.
//
// # Architecture
//
// livewatch consists of several internal packages (under internal/):
//
//   - fetch: shared outbound HTTP client
//   - resolver: tiered status resolution against the upstream API
//   - store: last known live state per streamer
//   - poller: poll cycle runner and scheduler
//   - notify: Discord, Telegram and webhook notifiers
//   - metrics: Prometheus instrumentation
//   - server: liveness endpoint and keep-alive pinger
//
// The config package loads YAML files and environment variables, and
// cmd/livewatch provides the command line interface.
package livewatch
