package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useTempDatabase(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "app.db")
	t.Setenv("DATABASE_DSN", dsn)
	t.Setenv("LOGGING_LEVEL", "error")
	return dsn
}

func TestRootCommand_Subcommands(t *testing.T) {
	var names []string
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "migrate", "create-superuser", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestMigrate_UpVersionDown(t *testing.T) {
	useTempDatabase(t)

	out, err := execute(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")

	out, err = execute(t, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")

	_, err = execute(t, "migrate", "down")
	require.NoError(t, err)

	out, err = execute(t, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 0")
}

func TestMigrate_RequiresDSN(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")
	_, err := execute(t, "migrate", "up")
	assert.Error(t, err)
}

func TestCreateSuperuser(t *testing.T) {
	useTempDatabase(t)
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("AUTH_PASSWORD_BCRYPT_COST", "4")

	out, err := execute(t, "create-superuser", "--email", "Admin@Example.com", "--password", "securepassword")
	require.NoError(t, err)
	assert.Contains(t, out, "superuser admin@example.com (id 1) ready")

	out, err = execute(t, "create-superuser", "--email", "admin@example.com", "--password", "anotherpassword")
	require.NoError(t, err)
	assert.Contains(t, out, "(id 1) ready", "an existing account is promoted, not duplicated")
}

func TestCreateSuperuser_RequiresFlags(t *testing.T) {
	_, err := execute(t, "create-superuser", "--email", "admin@example.com")
	assert.ErrorContains(t, err, "--password")
}

func TestSeedSuperuser(t *testing.T) {
	useTempDatabase(t)
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("AUTH_PASSWORD_BCRYPT_COST", "4")
	t.Setenv("FIRST_SUPERUSER_EMAIL", "root@example.com")
	t.Setenv("FIRST_SUPERUSER_PASSWORD", "securepassword")

	var flags rootFlags
	for range 2 {
		settings, err := flags.settings()
		require.NoError(t, err)
		app, db, err := newApp(settings)
		require.NoError(t, err)
		app.OnStart(seedSuperuser(settings, db, app.Logger))

		err = app.RunTask(context.Background(), func(ctx context.Context) error {
			u, err := userService(settings, db, app.Logger).GetByEmail(ctx, "root@example.com")
			if err != nil {
				return err
			}
			assert.True(t, u.IsSuperuser)
			assert.Equal(t, uint(1), u.ID)
			return nil
		})
		require.NoError(t, err)
	}
}
