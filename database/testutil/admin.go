package testutil

import (
	"context"
	"errors"

	"github.com/kbukum/usersvc/database"
)

// ErrDatabaseExists is returned by Database.Start when the test database is
// already present. An existing database is never reused or dropped: it may
// belong to another run or to something that is not a test at all.
var ErrDatabaseExists = errors.New("test database already exists, aborting tests")

// Admin performs server-level operations on whole databases.
type Admin interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string) error
	Drop(ctx context.Context, name string) error
}

// NewAdmin returns the Admin for the engine behind dsn. Names passed to it
// are resolved against dsn: the same server for Postgres, the same directory
// and extension for SQLite.
func NewAdmin(dsn string) (Admin, error) {
	switch database.DriverOf(dsn) {
	case database.DriverPostgres:
		return NewPostgresAdmin(dsn)
	default:
		return NewSQLiteAdmin(dsn), nil
	}
}
