package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/mangasync/sym"
)

// RunsCmd represents the runs (flow history) command
var RunsCmd = &cobra.Command{
	Use:   "runs",
	Short: sym.Runs + " Inspect recorded flow runs",
	Long: sym.Runs + ` runs - Inspect recorded flow runs

Every scrape and sync invocation is recorded with its job id, the source
batches it consumed, its counts and any error.

Examples:
  mangasync runs ls
  mangasync runs ls --flow sync-overviews --limit 5
  mangasync runs show 0b6c3f1e-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recent runs, newest first",
	RunE:  runRunsLs,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsLsCmd.Flags().String("flow", "", "Only runs of this flow (scrape-overviews, sync-chapters, ...)")
	runsLsCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	RunsCmd.AddCommand(runsLsCmd)
	RunsCmd.AddCommand(runsShowCmd)
}

func runRunsLs(cmd *cobra.Command, args []string) error {
	database, exec, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	p, err := newPipeline(cmd, exec)
	if err != nil {
		return err
	}
	flow, _ := cmd.Flags().GetString("flow")
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := p.Runs().List(cmd.Context(), flow, limit)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return writeJSON(cmd, runs)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintf(out, "%s No runs recorded\n", sym.Runs)
		return nil
	}
	fmt.Fprintf(out, "%-36s %-17s %-16s %-10s %s\n", "RUN ID", "FLOW", "JOB ID", "STATUS", "STARTED")
	fmt.Fprintf(out, "%-36s %-17s %-16s %-10s %s\n", "------", "----", "------", "------", "-------")
	for _, r := range runs {
		started := r.StartedAt
		fmt.Fprintf(out, "%-36s %-17s %-16s %-10s %s\n", r.ID, r.Flow, r.JobID, r.Status, formatTime(&started))
	}
	fmt.Fprintf(out, "\nTotal: %d run(s)\n", len(runs))
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	database, exec, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	p, err := newPipeline(cmd, exec)
	if err != nil {
		return err
	}
	run, err := p.Runs().Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return writeJSON(cmd, run)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Run %s\n", sym.Runs, run.ID)
	fmt.Fprintf(out, "  Flow:      %s\n", run.Flow)
	fmt.Fprintf(out, "  Job ID:    %s\n", run.JobID)
	fmt.Fprintf(out, "  Status:    %s\n", run.Status)
	if len(run.SourceJobIDs) > 0 {
		fmt.Fprintf(out, "  Batches:   %s\n", strings.Join(run.SourceJobIDs, ", "))
	}
	started := run.StartedAt
	fmt.Fprintf(out, "  Started:   %s\n", formatTime(&started))
	fmt.Fprintf(out, "  Completed: %s\n", formatTime(run.CompletedAt))
	if run.DurationMS != nil {
		fmt.Fprintf(out, "  Duration:  %dms\n", *run.DurationMS)
	}
	if run.Error != "" {
		fmt.Fprintf(out, "  Error:     %s\n", run.Error)
	}
	if len(run.Summary) > 0 {
		keys := make([]string, 0, len(run.Summary))
		for k := range run.Summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(out, "\nCounts:")
		for _, k := range keys {
			fmt.Fprintf(out, "  %-15s %d\n", k, run.Summary[k])
		}
	}
	return nil
}
