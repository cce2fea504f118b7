package testutil

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"
)

// Rows are fixture rows keyed by column.
type Rows = []map[string]interface{}

// InsertRows writes rows into table one statement per row, so each row gets
// its own generated key.
func InsertRows(db *gorm.DB, table string, rows Rows) error {
	for i, row := range rows {
		if err := db.Table(table).Create(row).Error; err != nil {
			return fmt.Errorf("insert %s row %d: %w", table, i, err)
		}
	}
	return nil
}

// MustInsertRows is InsertRows that fails the test.
func MustInsertRows(t testing.TB, db *gorm.DB, table string, rows Rows) {
	t.Helper()
	if err := InsertRows(db, table, rows); err != nil {
		t.Fatal(err)
	}
}

func clearTable(db *gorm.DB, table string) error {
	return db.Exec("DELETE FROM ?", quotedTable(table)).Error
}

// AppTables lists the schema's tables, leaving out the migration version
// table and SQLite internals.
func AppTables(db *gorm.DB) ([]string, error) {
	all, err := db.Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	var tables []string
	for _, name := range all {
		if name == migrationsTable || strings.HasPrefix(name, "sqlite_") {
			continue
		}
		tables = append(tables, name)
	}
	return tables, nil
}

// AssertRowCount reports a test error unless table holds want rows.
func AssertRowCount(t testing.TB, db *gorm.DB, table string, want int64) {
	t.Helper()
	var got int64
	if err := db.Table(table).Count(&got).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	if got != want {
		t.Errorf("%s has %d rows, want %d", table, got, want)
	}
}
