// Standalone mock upstream for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/livewatch serve -c example/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jpalmerr/livewatch/example/mockapi"
)

func main() {
	fmt.Println("Mock live API starting on :9999")
	fmt.Println("Rooms flip between offline and live every 20-60s")
	fmt.Println("Webhook notifications are logged at /hook")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	if err := mockapi.New().ListenAndServe(":9999"); err != nil {
		slog.Error("mock server error", "error", err)
		os.Exit(1)
	}
}
