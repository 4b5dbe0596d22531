// Package sym defines canonical symbols for mangasync commands and system markers.
// These symbols are stable across CLI output, logs and documentation.
package sym

// Command symbols: each has a CLI command.
const (
	AM      = "≡" // am: configuration
	Scrape  = "⨳" // scrape: fan out producers and load raw batches
	Sync    = "⋈" // sync: reconcile raw batches into the catalogue
	Jobs    = "꩜" // jobs: producer job log (pending / processed)
	Runs    = "✦" // runs: sync run history
	Catalog = "⊞" // catalog: normalized entries
)

// System infrastructure symbols.
const (
	DB    = "⊔" // database/storage layer
	Open  = "✿" // stage start
	Close = "❀" // stage end
)

// SymbolToCommand maps glyph strings to their text command equivalents.
var SymbolToCommand = map[string]string{
	AM:      "am",
	Scrape:  "scrape",
	Sync:    "sync",
	Jobs:    "jobs",
	Runs:    "runs",
	DB:      "db",
	Catalog: "catalog",
}

// CommandToSymbol maps text commands to their canonical glyph strings.
var CommandToSymbol = map[string]string{
	"am":      AM,
	"scrape":  Scrape,
	"sync":    Sync,
	"jobs":    Jobs,
	"runs":    Runs,
	"db":      DB,
	"catalog": Catalog,
}

// CommandDescriptions provides short human-readable explanations per command.
var CommandDescriptions = map[string]string{
	"am":      "Configuration: show and validate settings",
	"scrape":  "Ingest: fan out sources and load raw batches",
	"sync":    "Reconcile: upsert entities and rebuild mappings",
	"jobs":    "Job log: pending and processed producer batches",
	"runs":    "History: sync run executions",
	"db":      "Database: migrations and statistics",
	"catalog": "Catalogue: entries with their authors and genres",
}
