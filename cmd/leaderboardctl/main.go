// Command leaderboardctl reads and refreshes the leaderboard from a terminal.
package main

import (
	"os"

	"github.com/DhanushPadarthi/trailhead-leaderboard/cmd/leaderboardctl/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
