package database

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Driver identifies the database engine behind a DSN.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// DriverOf infers the engine from a DSN. URL forms with a postgres scheme and
// libpq keyword strings are Postgres; everything else is a SQLite path.
func DriverOf(dsn string) Driver {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres
	case strings.Contains(lower, "dbname=") || strings.Contains(lower, "host="):
		return DriverPostgres
	default:
		return DriverSQLite
	}
}

// Dialector returns the GORM dialector for a DSN.
func Dialector(dsn string) (gorm.Dialector, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database: empty DSN")
	}
	switch DriverOf(dsn) {
	case DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(SQLiteDSN(dsn)), nil
	}
}

// SQLiteDSN normalizes the SQLite forms accepted in configuration into a
// go-sqlite3 DSN ("sqlite://app.db" becomes "app.db").
func SQLiteDSN(dsn string) string {
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		if strings.HasPrefix(dsn, prefix) {
			return strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// SQLitePath returns the file a SQLite DSN points at, without the "file:"
// prefix and query options.
func SQLitePath(dsn string) string {
	path := strings.TrimPrefix(SQLiteDSN(dsn), "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// DatabaseName returns the database a DSN refers to: the dbname of a Postgres
// DSN or the file stem of a SQLite path.
func DatabaseName(dsn string) (string, error) {
	if DriverOf(dsn) == DriverSQLite {
		base := filepath.Base(SQLitePath(dsn))
		return strings.TrimSuffix(base, filepath.Ext(base)), nil
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		name := strings.TrimPrefix(u.Path, "/")
		if name == "" {
			return "", fmt.Errorf("database: DSN has no database name")
		}
		return name, nil
	}
	for _, field := range strings.Fields(dsn) {
		if v, ok := strings.CutPrefix(field, "dbname="); ok && v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("database: DSN has no dbname")
}

// WithDatabaseName rewrites a DSN to point at another database on the same
// server (Postgres) or another file in the same directory (SQLite). SQLite
// query options and the file extension are preserved.
func WithDatabaseName(dsn, name string) (string, error) {
	if DriverOf(dsn) == DriverSQLite {
		normalized := SQLiteDSN(dsn)
		path := SQLitePath(dsn)
		dir, base := filepath.Split(path)
		renamed := dir + name + filepath.Ext(base)
		return strings.Replace(normalized, path, renamed, 1), nil
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		u.Path = "/" + name
		return u.String(), nil
	}
	fields := strings.Fields(dsn)
	replaced := false
	for i, field := range fields {
		if strings.HasPrefix(field, "dbname=") {
			fields[i] = "dbname=" + name
			replaced = true
		}
	}
	if !replaced {
		fields = append(fields, "dbname="+name)
	}
	return strings.Join(fields, " "), nil
}
