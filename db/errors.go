package db

import (
	"strings"

	"github.com/teranos/mangasync/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed database.
// This typically happens when a CLI command's deferred Close races a cancelled run.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is closed.
// It matches both ErrDatabaseClosed marks and raw database/sql driver messages,
// which cannot be wrapped at the source.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
