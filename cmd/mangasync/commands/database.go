package commands

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/mangasync/am"
	"github.com/teranos/mangasync/db"
	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/logger"
	"github.com/teranos/mangasync/pipeline"
	"github.com/teranos/mangasync/store"
)

// cfg is the configuration resolved by LoadConfig for the running command.
var cfg *am.Config

// LoadConfig resolves configuration once per invocation: an explicit
// --config file, otherwise the am.toml cascade with env overrides.
func LoadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	var err error
	if path != "" {
		cfg, err = am.LoadFromFile(path)
	} else {
		cfg, err = am.Load()
	}
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	return nil
}

func config() *am.Config {
	if cfg == nil {
		return am.Default()
	}
	return cfg
}

// openDatabase opens and migrates the configured database.
func openDatabase() (*sql.DB, error) {
	path := config().GetDatabasePath()
	database, err := db.OpenWithMigrations(path, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}
	return database, nil
}

// openStore wraps the migrated database in the named-query executor.
func openStore() (*sql.DB, *store.SQLite, error) {
	database, err := openDatabase()
	if err != nil {
		return nil, nil, err
	}
	exec, err := store.NewSQLite(database, logger.Logger)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, exec, nil
}

// newPipeline builds a pipeline whose progress goes to the terminal, or to
// stdout as JSON lines under --json.
func newPipeline(cmd *cobra.Command, exec store.Executor) (*pipeline.Pipeline, error) {
	var emitter pipeline.Emitter
	if jsonOutput(cmd) {
		emitter = pipeline.NewJSONEmitter(cmd.OutOrStdout())
	} else {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		emitter = pipeline.NewCLIEmitter(verbosity)
	}
	return pipeline.New(exec, config(),
		pipeline.WithEmitter(emitter),
		pipeline.WithLogger(logger.ComponentLogger("pipeline")),
	)
}

// signalContext is cancelled on SIGINT or SIGTERM so in-flight fetches stop
// and the run is recorded as failed.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func jsonOutput(cmd *cobra.Command) bool {
	on, _ := cmd.Flags().GetBool("json")
	return on
}
