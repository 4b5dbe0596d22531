package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/mangasync/db"
	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/logger"
	"github.com/teranos/mangasync/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the mangasync database",
	Long: sym.DB + ` db - Manage the mangasync database

Examples:
  mangasync db migrate            # Apply pending migrations
  mangasync db stats              # Row counts per table`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts per table",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	path := config().GetDatabasePath()
	database, err := db.Open(path, logger.Logger)
	if err != nil {
		return err
	}
	defer database.Close()

	pending, err := db.PendingVersions(database)
	if err != nil {
		return err
	}
	if err := db.Migrate(database, logger.Logger); err != nil {
		return errors.Wrapf(err, "migrate %s", path)
	}

	if jsonOutput(cmd) {
		return writeJSON(cmd, map[string]interface{}{"database": path, "applied": pending})
	}
	out := cmd.OutOrStdout()
	if len(pending) == 0 {
		fmt.Fprintf(out, "%s %s is up to date\n", sym.DB, path)
		return nil
	}
	for _, v := range pending {
		fmt.Fprintf(out, "  applied %s\n", v)
	}
	fmt.Fprintf(out, "%s Applied %d migration(s) to %s\n", sym.DB, len(pending), path)
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	counts, unresolved, err := db.Stats(cmd.Context(), database)
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		tables := make(map[string]int64, len(counts))
		for _, c := range counts {
			tables[c.Table] = c.Rows
		}
		return writeJSON(cmd, map[string]interface{}{
			"database":            config().GetDatabasePath(),
			"tables":              tables,
			"unresolved_chapters": unresolved,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Database Statistics\n", sym.DB)
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(out, "Database Path:       %s\n\n", config().GetDatabasePath())
	for _, c := range counts {
		fmt.Fprintf(out, "  %-20s %d\n", c.Table, c.Rows)
	}
	fmt.Fprintf(out, "\nUnresolved chapters: %d\n", unresolved)
	return nil
}
