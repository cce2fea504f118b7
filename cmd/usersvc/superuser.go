package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/usersvc/api"
	"github.com/kbukum/usersvc/auth/password"
	"github.com/kbukum/usersvc/database"
	"github.com/kbukum/usersvc/logger"
	"github.com/kbukum/usersvc/users"
)

func newCreateSuperuserCmd(flags *rootFlags) *cobra.Command {
	var email, pw string
	cmd := &cobra.Command{
		Use:   "create-superuser",
		Short: "Create a superuser, or promote an existing account and reset its password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || pw == "" {
				return errors.New("--email and --password are required")
			}
			settings, err := flags.settings()
			if err != nil {
				return err
			}
			app, db, err := newApp(settings)
			if err != nil {
				return err
			}
			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				u, err := userService(settings, db, app.Logger).EnsureSuperuser(ctx, email, pw)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "superuser %s (id %d) ready\n", u.Email, u.ID)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&pw, "password", "", "Account password")
	return cmd
}

func userService(settings *api.Settings, db *database.Component, log *logger.Logger) *users.Service {
	hasher := password.NewHasher(settings.Auth.Password)
	return users.NewService(users.NewStore(db.DB().GormDB), hasher, hasher, log)
}

// seedSuperuser is the serve OnStart hook for settings.FirstSuperuser.
func seedSuperuser(settings *api.Settings, db *database.Component, log *logger.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		first := settings.FirstSuperuser
		if !first.Enabled() {
			return nil
		}
		u, created, err := userService(settings, db, log).CreateSuperuserIfMissing(ctx, first.Email, first.Password)
		if err != nil {
			return fmt.Errorf("first superuser: %w", err)
		}
		if created {
			log.Info("First superuser created", map[string]interface{}{logger.FieldEmail: u.Email})
		}
		return nil
	}
}
