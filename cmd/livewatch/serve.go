package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/livewatch"
	"github.com/jpalmerr/livewatch/config"
)

// shutdownTimeout bounds the wait for an in-flight cycle after a signal.
const shutdownTimeout = 45 * time.Second

// serveCmd starts watching.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start watching streamers",
	Long: `Start watching the configured streamers.

The watcher will:
  - Load configuration from the YAML file, or from the environment
  - Check every streamer once per poll interval, one at a time
  - Send a notification when a streamer goes live
  - Serve a liveness page on the configured port

It runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  livewatch serve -c livewatch.yaml
  livewatch serve --env-file prod.env`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addConfigFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.SlogLevel())
	logger.Info("config loaded",
		"streamers", len(cfg.Streamers),
		"notifier", cfg.Notifier.Type,
	)
	logger.Info("starting watcher",
		"port", cfg.Port,
		"poll_interval", cfg.PollInterval.Duration().String(),
	)

	opts, err := config.BuildOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build watcher: %w", err)
	}

	w, err := livewatch.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("watcher error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("watcher error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
