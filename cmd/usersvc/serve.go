package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/usersvc/api"
	"github.com/kbukum/usersvc/bootstrap"
	"github.com/kbukum/usersvc/database"
	"github.com/kbukum/usersvc/migrations"
	"github.com/kbukum/usersvc/observability"
	"github.com/kbukum/usersvc/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := flags.settings()
			if err != nil {
				return err
			}
			app, db, err := newApp(settings)
			if err != nil {
				return err
			}
			app.OnStart(seedSuperuser(settings, db, app.Logger))
			app.OnConfigure(func(_ context.Context, a *bootstrap.App[*api.Settings]) error {
				return mountAPI(a, db)
			})
			return app.Run(cmd.Context())
		},
	}
}

// newApp registers the components every command needs: telemetry and the
// migrated database.
func newApp(settings *api.Settings) (*bootstrap.App[*api.Settings], *database.Component, error) {
	app, err := bootstrap.NewApp(settings)
	if err != nil {
		return nil, nil, err
	}
	db := database.NewComponent(settings.Database, app.Logger).WithMigrations(migrations.FS, ".")
	if err := app.RegisterComponent(observability.NewComponent(settings.Observability, app.Logger)); err != nil {
		return nil, nil, err
	}
	if err := app.RegisterComponent(db); err != nil {
		return nil, nil, err
	}
	return app, db, nil
}

func mountAPI(a *bootstrap.App[*api.Settings], db *database.Component) error {
	handler, err := api.New(a.Cfg.Auth, api.Providers{
		Session: api.NewSessionProvider(db.DB().GormDB),
	}, a.Logger)
	if err != nil {
		return err
	}

	srv := server.New(a.Cfg.Server, a.Logger)
	if err := srv.ApplyMiddleware(); err != nil {
		return err
	}
	srv.RegisterDefaultEndpoints(a.Name, a.Components.HealthAll)
	handler.Register(srv.GinEngine())
	return a.RegisterComponent(server.NewComponent(srv))
}
