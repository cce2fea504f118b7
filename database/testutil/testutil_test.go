package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kbukum/usersvc/database"
	roottestutil "github.com/kbukum/usersvc/testutil"
)

type note struct {
	ID   uint
	Body string `gorm:"uniqueIndex"`
}

func testConfig(t *testing.T) database.Config {
	t.Helper()
	return database.Config{
		DSN:        filepath.Join(t.TempDir(), "app.db"),
		MaxRetries: 1,
		LogLevel:   "silent",
	}
}

// startDB starts a test database for t and drops it when t ends.
func startDB(t *testing.T) *Database {
	t.Helper()
	db := New(testConfig(t), nil).WithModels(&note{})
	roottestutil.T(t).Setup(db)
	return db
}

// recordingAdmin wraps an Admin and records the calls made to it.
type recordingAdmin struct {
	Admin
	calls   []string
	dropErr error
}

func (a *recordingAdmin) Exists(ctx context.Context, name string) (bool, error) {
	a.calls = append(a.calls, "exists:"+name)
	return a.Admin.Exists(ctx, name)
}

func (a *recordingAdmin) Create(ctx context.Context, name string) error {
	a.calls = append(a.calls, "create:"+name)
	return a.Admin.Create(ctx, name)
}

func (a *recordingAdmin) Drop(ctx context.Context, name string) error {
	a.calls = append(a.calls, "drop:"+name)
	if err := a.Admin.Drop(ctx, name); err != nil {
		return err
	}
	return a.dropErr
}
