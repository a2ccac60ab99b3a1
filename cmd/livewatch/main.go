// Package main is the entry point for the livewatch CLI.
//
// Usage:
//
//	livewatch serve -c livewatch.yaml   # Watch streamers from a config file
//	livewatch serve                     # Watch streamers from .env / environment
//	livewatch validate -c livewatch.yaml
//	livewatch check --room 889          # Resolve one streamer once
//	livewatch version
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/livewatch/config"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "livewatch",
	Short: "Announce when Bilibili streamers go live",
	Long: `livewatch polls Bilibili Live for a list of streamers and posts a
notification (Discord, Telegram or a webhook) when one of them goes live.

Configuration comes from a YAML file (-c) or, without one, from environment
variables, optionally loaded from a .env file:

  DISCORD_TOKEN=...
  CHANNEL_ID=...
  BILIBILI_UID_1=12345
  BILIBILI_NAME_1=Someone
  BILIBILI_ROOM_1=889
  CHECK_INTERVAL=60000`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this livewatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "livewatch %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// addConfigFlags registers the flags shared by commands that load configuration.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "path to YAML config file (default: read the environment)")
	cmd.Flags().StringSlice("env-file", nil, "dotenv files to load (default: .env if present)")
}

// loadConfig loads .env files, then the YAML file when given, otherwise the
// environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.FromEnv()
}

// newLogger creates a JSON logger for CLI use.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
