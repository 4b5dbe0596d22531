package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teranos/mangasync/pipeline"
	"github.com/teranos/mangasync/sym"
)

// ScrapeCmd represents the scrape (producer) command
var ScrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: sym.Scrape + " Fetch sources and load a raw batch",
	Long: sym.Scrape + ` scrape - Fetch sources and load a raw batch

Fetches every slug in scrape.slugs from scrape.source (a YAML mirror
directory or the catalogue HTTP API), loads the rows into the raw tables
under a fresh job id and logs the batch as pending for its sync service.
A fetch error aborts the batch before anything is written.

Examples:
  mangasync scrape overviews
  MANGASYNC_SCRAPE_WORKERS=8 mangasync scrape chapters`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var scrapeOverviewsCmd = &cobra.Command{
	Use:   "overviews",
	Short: "Load a raw overview batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
			_, err := p.ScrapeOverviews(ctx)
			return err
		})
	},
}

var scrapeChaptersCmd = &cobra.Command{
	Use:   "chapters",
	Short: "Load a raw chapter batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
			_, err := p.ScrapeChapters(ctx)
			return err
		})
	},
}

func init() {
	ScrapeCmd.AddCommand(scrapeOverviewsCmd)
	ScrapeCmd.AddCommand(scrapeChaptersCmd)
}

// runFlow opens the store, builds a pipeline and runs fn under a
// signal-aware context.
func runFlow(cmd *cobra.Command, fn func(context.Context, *pipeline.Pipeline) error) error {
	database, exec, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	p, err := newPipeline(cmd, exec)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()
	return fn(ctx, p)
}
