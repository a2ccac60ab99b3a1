package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/livewatch/internal/fetch"
	"github.com/jpalmerr/livewatch/internal/resolver"
	"github.com/jpalmerr/livewatch/live"
)

// checkCmd resolves one streamer once and prints the result.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a streamer is live right now",
	Long: `Resolve the live status of one streamer through the same fallback
chain the watcher uses, print it, and exit. No notification is sent.

Example:
  livewatch check --user 12345
  livewatch check --room 889`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("user", "", "user id to check")
	checkCmd.Flags().String("room", "", "room id to check")
	checkCmd.Flags().String("api-base-url", resolver.DefaultAPIBaseURL, "upstream live API host")
	checkCmd.Flags().Duration("timeout", resolver.DefaultTimeout, "timeout per upstream request")
	checkCmd.Flags().Bool("debug", false, "log each resolution tier")
	checkCmd.MarkFlagsMutuallyExclusive("user", "room")
	checkCmd.MarkFlagsOneRequired("user", "room")
}

func runCheck(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	roomID, _ := cmd.Flags().GetString("room")
	baseURL, _ := cmd.Flags().GetString("api-base-url")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	debug, _ := cmd.Flags().GetBool("debug")

	entity := live.Entity{ID: userID, Kind: live.KindUser}
	if roomID != "" {
		entity = live.Entity{ID: roomID, Kind: live.KindRoom}
	}

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	logger := newLogger(level)

	client := fetch.NewClient("")
	defer client.Close()

	api := resolver.NewAPI(client, resolver.APIConfig{BaseURL: baseURL, Timeout: timeout})
	res := resolver.New(resolver.DefaultTiers(api, logger), logger, nil)
	logger.Debug("resolving", "kind", entity.Kind.String(), "id", entity.ID, "tiers", res.Tiers())

	// three tiers, each bounded by timeout
	ctx, cancel := context.WithTimeout(cmd.Context(), 3*timeout+time.Second)
	defer cancel()

	info, err := res.Resolve(ctx, entity)
	if err != nil {
		var rerr *live.ResolutionError
		if errors.As(err, &rerr) {
			for _, f := range rerr.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", f.Tier, f.Err)
			}
		}
		return fmt.Errorf("status unavailable for %s %s", entity.Kind, entity.ID)
	}

	state := "offline"
	if info.IsLive {
		state = "LIVE"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s: %s\n", entity.Kind, entity.ID, state)
	fmt.Fprintf(out, "  Title:   %s\n", info.Title)
	if info.RoomURL != "" {
		fmt.Fprintf(out, "  Room:    %s\n", info.RoomURL)
	}
	if info.CoverURL != "" {
		fmt.Fprintf(out, "  Cover:   %s\n", info.CoverURL)
	}
	if info.IsLive {
		fmt.Fprintf(out, "  Online:  %d\n", info.Online)
	}
	return nil
}
