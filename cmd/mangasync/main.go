package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/mangasync/cmd/mangasync/commands"
	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/logger"
)

var rootCmd = &cobra.Command{
	Use:   "mangasync",
	Short: "mangasync - incremental relational sync for scraped manga catalogues",
	Long: `mangasync - incremental relational sync for scraped manga catalogues.

Producers scrape overviews and chapter lists into raw tables, one batch per
job id. Sync runs pick up pending batches, keep the latest raw row per key,
upsert mangas, authors, genres and chapters, and rebuild the join mappings
so a replay of the same batches converges to the same catalogue.

Available commands:
  am      - Show and edit configuration ("I am")
  catalog - Show one catalogue entry with its authors and genres
  db      - Apply migrations and show table statistics
  scrape  - Fetch sources and load a raw batch
  sync    - Reconcile pending raw batches into the catalogue
  jobs    - Inspect the producer job log
  runs    - Inspect recorded flow runs

Examples:
  mangasync scrape overviews        # Load a raw overview batch
  mangasync sync overviews          # Reconcile every pending overview batch
  mangasync sync chapters --job-id 20240102103000
  mangasync jobs pending            # Batches waiting for a sync run
  mangasync runs ls --flow sync-chapters`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOut, _ := cmd.Flags().GetBool("json")

		// Unattended runs (cron, containers) set MANGASYNC_ENV instead of flags
		var err error
		if os.Getenv("MANGASYNC_ENV") != "" && verbosity == 0 && !cmd.Flags().Changed("json") {
			err = logger.InitializeFromEnv()
		} else {
			err = logger.Initialize(jsonOut, verbosity)
		}
		if err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		logger.Logger.Debugw("Logger ready", "verbosity", logger.LevelName(verbosity))
		return commands.LoadConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json", false, "Structured output: JSON logs on stderr, JSON events on stdout")
	rootCmd.PersistentFlags().String("config", "", "Read configuration from this file instead of the am.toml cascade")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.CatalogCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.ScrapeCmd)
	rootCmd.AddCommand(commands.SyncCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.RunsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	os.Exit(run())
}

func run() int {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		return 1
	}
	return 0
}
