package main

import (
	"fmt"
	"path/filepath"

	"github.com/dom/puckquery/internal/ingest"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Reset the database and load the configured event export",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, log := setup()

			a, err := newApp(cfg, log)
			if err != nil {
				log.WithError(err).Fatal("failed to start")
			}

			table, declared, err := a.services.Seed.LoadSources()
			if err != nil {
				log.WithError(err).Fatal("failed to load event data")
			}

			result, err := a.services.Seed.ResetAndSeed(cmd.Context(), table, declared)
			if err != nil {
				log.WithError(err).Fatal("failed to seed database")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d teams, %d players, %d games and %d events in %s\n",
				result.Teams, result.Players, result.Games, result.Events, result.Duration)
		},
	}
}

func newSplitCommand() *cobra.Command {
	var (
		dataPath string
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Write one CSV per game of the event export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var log logrus.FieldLogger = logrus.StandardLogger()
			if dataPath == "" {
				cfg, configured := setup()
				dataPath, log = cfg.DataPath, configured
			}

			table, err := ingest.LoadCSV(dataPath, log)
			if err != nil {
				return err
			}

			paths, err := ingest.SplitGames(table, outDir)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved game: %s\n", filepath.Base(p))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Event export to split (default DATA_PATH)")
	cmd.Flags().StringVar(&outDir, "out", filepath.Join("data", "games"), "Output directory")

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "puckquery "+version)
		},
	}
}
