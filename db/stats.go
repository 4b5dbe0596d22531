package db

import (
	"context"
	"database/sql"

	"github.com/teranos/mangasync/errors"
)

// Tables lists the persisted tables reported by Stats, in display order.
var Tables = []string{
	"mangas",
	"authors",
	"genres",
	"manga_authors",
	"manga_genres",
	"manga_chapters",
	"raw_mangas",
	"raw_manga_chapters",
	"scraper_logs",
	"sync_runs",
}

// TableCount is the row count of one table.
type TableCount struct {
	Table string
	Rows  int64
}

// Stats returns row counts for every table in Tables plus the number of
// chapters still waiting for their parent manga.
func Stats(ctx context.Context, db *sql.DB) ([]TableCount, int64, error) {
	counts := make([]TableCount, 0, len(Tables))
	for _, table := range Tables {
		var n int64
		// table names come from the fixed list above
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, 0, errors.Wrapf(err, "count %s", table)
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}

	var unresolved int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM manga_chapters WHERE manga_id IS NULL").Scan(&unresolved); err != nil {
		return nil, 0, errors.Wrap(err, "count unresolved chapters")
	}
	return counts, unresolved, nil
}
