package store

import (
	"github.com/mattn/go-sqlite3"

	"github.com/scopeworks/discovery/errors"
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// violation, e.g. two upserts racing to insert the same scenario id.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED. Under WAL a
// deferred transaction that read before writing can lose the lock upgrade
// to a concurrent writer and fail immediately with one of these.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// isForeignKeyViolation reports whether err is a SQLite FOREIGN KEY
// constraint violation. Child inserts hit this when the owning project
// does not exist.
func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
