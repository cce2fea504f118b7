package testutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/usersvc/component"
	"github.com/kbukum/usersvc/database"
	"github.com/kbukum/usersvc/database/migration"
	"github.com/kbukum/usersvc/logger"
	"github.com/kbukum/usersvc/testutil"
)

// DefaultSuffix is appended to the configured database name to derive the
// test database name.
const DefaultSuffix = "_test"

// migrationsTable is skipped by Reset, Snapshot and Restore.
const migrationsTable = "schema_migrations"

// Database owns a throwaway database for one test binary. Start creates it
// next to the configured one and applies the schema; Stop closes the pool and
// drops it.
//
//	func TestMain(m *testing.M) {
//	    db := testutil.New(cfg.Database, nil).WithModels(&users.User{})
//	    mgr := testutil.NewManager(context.Background())
//	    mgr.Add(db)
//	    os.Exit(mgr.Run(m.Run))
//	}
type Database struct {
	cfg    database.Config
	log    *logger.Logger
	admin  Admin
	suffix string
	models []interface{}

	migrations     fs.FS
	migrationsPath string

	db      *database.DB
	name    string
	dsn     string
	started bool
	mu      sync.RWMutex
}

var (
	_ component.Component    = (*Database)(nil)
	_ testutil.TestComponent = (*Database)(nil)
)

// New creates a test database derived from cfg.DSN.
func New(cfg database.Config, log *logger.Logger) *Database {
	if log == nil {
		log = logger.NewNop()
	}
	return &Database{
		cfg:    cfg,
		log:    log.WithComponent("database-test"),
		suffix: DefaultSuffix,
	}
}

// WithModels registers models for auto-migration on Start.
func (d *Database) WithModels(models ...interface{}) *Database {
	d.models = append(d.models, models...)
	return d
}

// WithMigrations applies the SQL migrations under root/<driver> on Start
// instead of auto-migration.
func (d *Database) WithMigrations(source fs.FS, root string) *Database {
	d.migrations = source
	d.migrationsPath = root
	return d
}

// WithAdmin replaces the engine admin derived from the DSN.
func (d *Database) WithAdmin(admin Admin) *Database {
	d.admin = admin
	return d
}

// WithSuffix changes the suffix appended to the database name.
func (d *Database) WithSuffix(suffix string) *Database {
	d.suffix = suffix
	return d
}

// TestDSN derives the test database name and DSN from a base DSN.
func TestDSN(base, suffix string) (name, dsn string, err error) {
	baseName, err := database.DatabaseName(base)
	if err != nil {
		return "", "", err
	}
	name = baseName + suffix
	dsn, err = database.WithDatabaseName(base, name)
	if err != nil {
		return "", "", err
	}
	return name, dsn, nil
}

// Name returns the component name.
func (d *Database) Name() string { return "database-test" }

// DatabaseName returns the name of the test database once derived.
func (d *Database) DatabaseName() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

// DSN returns the DSN of the test database once derived.
func (d *Database) DSN() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dsn
}

// DB returns the pool of the test database, or nil if not started.
func (d *Database) DB() *gorm.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil
	}
	return d.db.GormDB
}

// Start creates the test database and applies the schema. It fails with
// ErrDatabaseExists when the database is already there.
func (d *Database) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("component already started")
	}
	if isInMemory(d.cfg.DSN) {
		return fmt.Errorf("test database needs a file or server DSN, got %q", d.cfg.DSN)
	}

	name, dsn, err := TestDSN(d.cfg.DSN, d.suffix)
	if err != nil {
		return fmt.Errorf("derive test database: %w", err)
	}
	d.name, d.dsn = name, dsn

	if d.admin == nil {
		if d.admin, err = NewAdmin(d.cfg.DSN); err != nil {
			return err
		}
	}

	exists, err := d.admin.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDatabaseExists, name)
	}
	if err := d.admin.Create(ctx, name); err != nil {
		return err
	}
	d.log.Info("Created test database", map[string]interface{}{logger.FieldDatabase: name})

	cfg := d.cfg
	cfg.Enabled = true
	cfg.DSN = dsn
	db, err := database.New(ctx, cfg, d.log)
	if err != nil {
		return errors.Join(err, d.admin.Drop(ctx, name))
	}

	if err := d.migrate(ctx, db); err != nil {
		return errors.Join(err, db.Close(), d.admin.Drop(ctx, name))
	}

	d.db = db
	d.started = true
	return nil
}

func (d *Database) migrate(ctx context.Context, db *database.DB) error {
	if d.migrations != nil {
		return migration.Up(db.GormDB, d.migrations, path.Join(d.migrationsPath, string(db.Driver())))
	}
	if len(d.models) > 0 {
		return db.AutoMigrate(ctx, d.models...)
	}
	return nil
}

// Stop closes every pooled connection and drops the test database. Both
// steps run even if the first fails.
func (d *Database) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil
	}
	d.started = false

	var errs []error
	if err := d.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close test database: %w", err))
	}
	if err := d.admin.Drop(ctx, d.name); err != nil {
		errs = append(errs, err)
	} else {
		d.log.Info("Dropped test database", map[string]interface{}{logger.FieldDatabase: d.name})
	}
	d.db = nil
	return errors.Join(errs...)
}

// Health returns the health status of the test database.
func (d *Database) Health(ctx context.Context) component.Health {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.started {
		return component.Health{Name: d.Name(), Status: component.StatusUnhealthy, Message: "database not started"}
	}
	if status := d.db.CheckHealth(ctx); !status.Connected {
		return component.Health{Name: d.Name(), Status: component.StatusUnhealthy, Message: status.Error}
	}
	return component.Health{Name: d.Name(), Status: component.StatusHealthy}
}

// Isolate returns a session of the test database that is rolled back when t
// ends.
func (d *Database) Isolate(t testing.TB, opts ...IsolateOption) *Session {
	t.Helper()
	db := d.DB()
	if db == nil {
		t.Fatalf("test database %q not started", d.Name())
	}
	return MustIsolate(t, db, opts...)
}

// Reset deletes all rows from every table while preserving the schema.
func (d *Database) Reset(ctx context.Context) error {
	db, err := d.startedDB(ctx)
	if err != nil {
		return err
	}
	tables, err := AppTables(db)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := clearTable(db, table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// Snapshot captures every row of every table.
func (d *Database) Snapshot(ctx context.Context) (interface{}, error) {
	db, err := d.startedDB(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := AppTables(db)
	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]Rows, len(tables))
	for _, table := range tables {
		var rows Rows
		if err := db.Table(table).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to snapshot table %s: %w", table, err)
		}
		snapshot[table] = rows
	}
	return snapshot, nil
}

// Restore returns the database to a state captured by Snapshot.
func (d *Database) Restore(ctx context.Context, snap interface{}) error {
	snapshot, ok := snap.(map[string]Rows)
	if !ok {
		return fmt.Errorf("restore: %T is not a Snapshot result", snap)
	}
	if err := d.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset before restore: %w", err)
	}

	db, err := d.startedDB(ctx)
	if err != nil {
		return err
	}
	for table, rows := range snapshot {
		if err := InsertRows(db, table, rows); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) startedDB(ctx context.Context) (*gorm.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.started {
		return nil, fmt.Errorf("component not started")
	}
	return d.db.WithContext(ctx), nil
}

func isInMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// quotedTable renders a table name through the dialect's quoting.
func quotedTable(name string) clause.Table {
	return clause.Table{Name: name}
}
