package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/usersvc/api"
	"github.com/kbukum/usersvc/config"
)

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	cmd := &cobra.Command{
		Use:   api.ServiceName,
		Short: "User accounts API with JWT login",
	}
	cmd.SilenceUsage = true
	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Path to config.yml (default: searched next to the binary)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Path to a .env file")

	cmd.AddCommand(newServeCmd(&flags))
	cmd.AddCommand(newMigrateCmd(&flags))
	cmd.AddCommand(newCreateSuperuserCmd(&flags))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (f *rootFlags) loaderOptions() []config.LoaderOption {
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	return opts
}

func (f *rootFlags) settings() (*api.Settings, error) {
	return api.LoadSettings(f.loaderOptions()...)
}
