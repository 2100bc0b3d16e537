package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "puckquery",
	Short: "Hockey event log API with game-scoped natural-language queries",
	Long: `puckquery loads a play-by-play hockey export into PostgreSQL, resolves
teams, players and games, and serves them over HTTP together with a chat
endpoint that answers questions about a single game.

Configuration is read from .env, config.yaml and the environment.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(
		newServeCommand(),
		newSeedCommand(),
		newSplitCommand(),
		newVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
