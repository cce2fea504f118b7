package testutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kbukum/usersvc/database"
)

// SQLiteAdmin manages SQLite database files next to a base DSN.
type SQLiteAdmin struct {
	base string
}

// NewSQLiteAdmin creates an admin whose databases live beside dsn.
func NewSQLiteAdmin(dsn string) *SQLiteAdmin {
	return &SQLiteAdmin{base: dsn}
}

// Path returns the file backing the named database.
func (a *SQLiteAdmin) Path(name string) string {
	dsn, _ := database.WithDatabaseName(a.base, name)
	return database.SQLitePath(dsn)
}

func (a *SQLiteAdmin) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(a.Path(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Create makes an empty database file. SQLite treats a zero-length file as
// an empty database.
func (a *SQLiteAdmin) Create(_ context.Context, name string) error {
	path := a.Path(name)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDatabaseExists, path)
		}
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return f.Close()
}

// Drop removes the database file with its journal and WAL files.
func (a *SQLiteAdmin) Drop(_ context.Context, name string) error {
	path := a.Path(name)
	var errs []error
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
