// Package migration runs versioned SQL migrations with golang-migrate against
// the connection pool of a GORM database.
//
// The migrate driver is picked from the GORM dialector, so the same calls work
// for Postgres (pgx/v5) and SQLite (sqlite3):
//
//	//go:embed postgres/*.sql sqlite/*.sql
//	var migrationsFS embed.FS
//
//	err := migration.Up(gormDB, migrationsFS, "sqlite")
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

// DriverFunc creates a migrate database driver from sql.DB.
type DriverFunc func(*sql.DB) (database.Driver, error)

// DriverFor returns the migrate driver matching a GORM dialector name.
func DriverFor(dialect string) (DriverFunc, error) {
	switch dialect {
	case "postgres":
		return func(db *sql.DB) (database.Driver, error) {
			return migratepgx.WithInstance(db, &migratepgx.Config{})
		}, nil
	case "sqlite", "sqlite3":
		return func(db *sql.DB) (database.Driver, error) {
			return sqlite3.WithInstance(db, &sqlite3.Config{})
		}, nil
	default:
		return nil, fmt.Errorf("migration: unsupported dialect %q", dialect)
	}
}

// Up runs all pending migrations. Migration files follow the pattern
// VERSION_name.up.sql and VERSION_name.down.sql. No pending migrations is not
// an error.
func Up(gormDB *gorm.DB, source fs.FS, path string) error {
	m, err := newMigrator(gormDB, source, path)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back every applied migration.
func Down(gormDB *gorm.DB, source fs.FS, path string) error {
	m, err := newMigrator(gormDB, source, path)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Steps applies n migrations forward (n > 0) or rolls back -n (n < 0).
func Steps(gormDB *gorm.DB, source fs.FS, path string, n int) error {
	m, err := newMigrator(gormDB, source, path)
	if err != nil {
		return err
	}
	if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate steps: %w", err)
	}
	return nil
}

// Version returns the current migration version and dirty flag. A database
// without applied migrations reports version 0.
func Version(gormDB *gorm.DB, source fs.FS, path string) (version uint, dirty bool, err error) {
	m, err := newMigrator(gormDB, source, path)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// newMigrator creates a golang-migrate instance backed by source.
// Callers must NOT call m.Close(): it would close the shared sql.DB.
func newMigrator(gormDB *gorm.DB, source fs.FS, path string) (*migrate.Migrate, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	dialect := gormDB.Dialector.Name()
	driverFunc, err := DriverFor(dialect)
	if err != nil {
		return nil, err
	}
	driver, err := driverFunc(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("create database driver: %w", err)
	}

	src, err := iofs.New(source, path)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
