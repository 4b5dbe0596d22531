package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teranos/mangasync/pipeline"
	"github.com/teranos/mangasync/sym"
)

// SyncCmd represents the sync (reconcile) command
var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: sym.Sync + " Reconcile pending raw batches into the catalogue",
	Long: sym.Sync + ` sync - Reconcile pending raw batches into the catalogue

Without --job-id a sync run takes every batch its service has not yet
processed. Raw rows are validated, reduced to the latest row per key,
upserted, and the author/genre mappings of every touched manga are
rebuilt. Batches are marked processed only after the catalogue write
succeeds, so a failed run can simply be repeated.

Examples:
  mangasync sync overviews
  mangasync sync chapters --job-id 20240102103000 --job-id 20240102113000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var syncOverviewsCmd = &cobra.Command{
	Use:   "overviews",
	Short: "Sync overview batches into mangas, authors and genres",
	RunE: func(cmd *cobra.Command, args []string) error {
		jobIDs, _ := cmd.Flags().GetStringSlice("job-id")
		return runFlow(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
			_, err := p.SyncOverviews(ctx, jobIDs)
			return err
		})
	},
}

var syncChaptersCmd = &cobra.Command{
	Use:   "chapters",
	Short: "Sync chapter batches into manga_chapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		jobIDs, _ := cmd.Flags().GetStringSlice("job-id")
		return runFlow(cmd, func(ctx context.Context, p *pipeline.Pipeline) error {
			_, err := p.SyncChapters(ctx, jobIDs)
			return err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{syncOverviewsCmd, syncChaptersCmd} {
		c.Flags().StringSlice("job-id", nil, "Sync these job ids (YYYYMMDDHHMMSS) instead of the pending ones")
		SyncCmd.AddCommand(c)
	}
}
