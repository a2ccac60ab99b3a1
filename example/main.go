package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/livewatch"
	"github.com/jpalmerr/livewatch/example/mockapi"
	"github.com/jpalmerr/livewatch/internal/notify"
	"github.com/jpalmerr/livewatch/live"
)

func main() {
	// start the fake upstream (see mockapi)
	go func() {
		if err := mockapi.New().ListenAndServe(":9999"); err != nil {
			slog.Error("mock api error", "error", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	notifier, err := notify.Build(notify.Config{
		Type: notify.TypeWebhook,
		URL:  "http://localhost:9999/hook",
	}, nil)
	if err != nil {
		slog.Error("failed to create notifier", "error", err)
		os.Exit(1)
	}

	w, err := livewatch.New(
		livewatch.WithEntities(
			live.Entity{ID: "1", DisplayName: "Alice", Kind: live.KindUser},
			live.Entity{ID: "3", DisplayName: "Bob", Kind: live.KindUser},
			live.Entity{ID: "1005", DisplayName: "Carol's room", Kind: live.KindRoom},
		),
		livewatch.WithNotifier(notifier),
		livewatch.WithAPIBaseURL("http://localhost:9999"),
		livewatch.WithPollInterval(5*time.Second),
		livewatch.WithPaceDelay(200*time.Millisecond),
		livewatch.WithStartupNotice(time.Second),
		livewatch.WithPort(8080),
		livewatch.WithTransitionCallback(func(ev live.TransitionEvent) {
			fmt.Printf("  >> %s is live: %s\n", ev.Entity.Name(), ev.Info.Title)
		}),
	)
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  livewatch demo")
	fmt.Println()
	fmt.Println("  Running page: http://localhost:8080")
	fmt.Println("  Metrics:      http://localhost:8080/metrics")
	fmt.Println("  3 streamers, polled every 5s against a mock API")
	fmt.Println("  Rooms flip live/offline every 20-60s")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		slog.Error("livewatch error", "error", err)
		os.Exit(1)
	}
}
