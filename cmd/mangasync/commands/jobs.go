package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/mangasync/joblog"
	"github.com/teranos/mangasync/logger"
	"github.com/teranos/mangasync/sym"
)

// JobsCmd represents the jobs (producer job log) command
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: sym.Jobs + " Inspect the producer job log",
	Long: sym.Jobs + ` jobs - Inspect the producer job log

Every scrape batch is logged per service with its job id. A batch is
pending until a sync run for that service marks it processed.

Examples:
  mangasync jobs pending                      # Pending overview batches
  mangasync jobs pending --service chapters   # Pending chapter batches
  mangasync jobs ls --limit 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var jobsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List job ids not yet processed by a sync run",
	RunE:  runJobsPending,
}

var jobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List logged batches, newest first",
	RunE:  runJobsLs,
}

func init() {
	for _, c := range []*cobra.Command{jobsPendingCmd, jobsLsCmd} {
		c.Flags().String("service", "overviews", "Service: overviews, chapters, or a literal service name")
		JobsCmd.AddCommand(c)
	}
	jobsLsCmd.Flags().Int("limit", joblog.DefaultListLimit, "Maximum number of batches to show")
}

// serviceName maps the overviews/chapters shorthands to the configured services.
func serviceName(cmd *cobra.Command) string {
	service, _ := cmd.Flags().GetString("service")
	switch service {
	case "overviews":
		return config().GetOverviewsService()
	case "chapters":
		return config().GetChaptersService()
	default:
		return service
	}
}

func runJobsPending(cmd *cobra.Command, args []string) error {
	database, exec, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	service := serviceName(cmd)
	ids, err := joblog.NewTracker(exec, nil, logger.ComponentLogger("jobs")).FetchPending(cmd.Context(), service)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return writeJSON(cmd, map[string]interface{}{"service": service, "pending": ids})
	}

	out := cmd.OutOrStdout()
	if len(ids) == 0 {
		fmt.Fprintf(out, "%s No pending batches for %s\n", sym.Jobs, service)
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	fmt.Fprintf(out, "\n%s %d pending batch(es) for %s\n", sym.Jobs, len(ids), service)
	return nil
}

func runJobsLs(cmd *cobra.Command, args []string) error {
	database, exec, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	service := serviceName(cmd)
	batches, err := joblog.NewTracker(exec, nil, logger.ComponentLogger("jobs")).List(cmd.Context(), service, limit)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return writeJSON(cmd, batches)
	}

	out := cmd.OutOrStdout()
	if len(batches) == 0 {
		fmt.Fprintf(out, "%s No batches logged for %s\n", sym.Jobs, service)
		return nil
	}
	fmt.Fprintf(out, "%-16s %-20s %-10s %s\n", "JOB ID", "JOB AT", "STATUS", "PROCESSED")
	fmt.Fprintf(out, "%-16s %-20s %-10s %s\n", "------", "------", "------", "---------")
	for _, b := range batches {
		status := "processed"
		if b.Pending() {
			status = "pending"
		}
		jobAt := b.JobAt
		fmt.Fprintf(out, "%-16s %-20s %-10s %s\n", b.JobID, formatTime(&jobAt), status, formatTime(b.ProcessedAt))
	}
	fmt.Fprintf(out, "\nTotal: %d batch(es)\n", len(batches))
	return nil
}
