package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/usersvc/api"
	"github.com/kbukum/usersvc/config"
	"github.com/kbukum/usersvc/database"
	"github.com/kbukum/usersvc/database/migration"
	"github.com/kbukum/usersvc/logger"
	"github.com/kbukum/usersvc/migrations"
)

// migrateSettings is the subset of the configuration migrations need, so
// they run without auth secrets.
type migrateSettings struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Database             database.Config `yaml:"database" mapstructure:"database"`
}

func (s *migrateSettings) ApplyDefaults() {
	if s.Name == "" {
		s.Name = api.ServiceName
	}
	s.ServiceConfig.ApplyDefaults()
	s.Database.Enabled = true
	s.Database.ApplyDefaults()
}

func (s *migrateSettings) Validate() error {
	return errors.Join(s.ServiceConfig.Validate(), s.Database.Validate())
}

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrationDB(cmd.Context(), flags, func(db *database.DB, dir string) error {
				if err := migration.Up(db.GormDB, migrations.FS, dir); err != nil {
					return err
				}
				return printVersion(cmd, db, dir)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrationDB(cmd.Context(), flags, func(db *database.DB, dir string) error {
				return migration.Down(db.GormDB, migrations.FS, dir)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrationDB(cmd.Context(), flags, func(db *database.DB, dir string) error {
				return printVersion(cmd, db, dir)
			})
		},
	})
	return cmd
}

func withMigrationDB(ctx context.Context, flags *rootFlags, fn func(db *database.DB, dir string) error) (err error) {
	var settings migrateSettings
	if err := config.LoadConfig(api.ServiceName, &settings, flags.loaderOptions()...); err != nil {
		return err
	}
	logger.Init(settings.Logging)
	log := logger.GetGlobalLogger()

	db, err := database.New(ctx, settings.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, db.Close())
	}()
	return fn(db, string(db.Driver()))
}

func printVersion(cmd *cobra.Command, db *database.DB, dir string) error {
	v, dirty, err := migration.Version(db.GormDB, migrations.FS, dir)
	if err != nil {
		return err
	}
	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d%s\n", v, suffix)
	return err
}
