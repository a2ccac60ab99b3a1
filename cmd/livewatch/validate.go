package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd validates configuration without starting the watcher.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate livewatch configuration without starting the watcher.

This command parses the YAML file (or reads the environment), expands
environment variables, and validates all fields, including notifier
credentials. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  livewatch validate -c livewatch.yaml
  livewatch validate --env-file .env`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addConfigFlags(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	users, rooms := 0, 0
	for _, s := range cfg.Streamers {
		if s.Kind == "room" {
			rooms++
		} else {
			users++
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Notifier:      %s\n", cfg.Notifier.Type)
	fmt.Fprintf(out, "  Streamers:     %d users + %d rooms = %d total\n", users, rooms, users+rooms)

	return nil
}
