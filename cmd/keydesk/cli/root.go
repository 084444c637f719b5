package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keydesk/keydesk/internal/config"
)

// app carries state shared by every subcommand of one root command.
type app struct {
	cfgFile string
	v       *viper.Viper

	version string
	commit  string
	date    string
}

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	return newRootCmd(version, commit, date).Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	a := &app{
		v:       viper.New(),
		version: version,
		commit:  commit,
		date:    date,
	}

	cmd := &cobra.Command{
		Use:   "keydesk",
		Short: "License key registry and API key dashboard",
		Long: `keydesk: a license key registry and an admin dashboard for API keys.

The registry stores license keys with an expiry derived from their type
(hour, day, month, lifetime) and answers whether a key is still valid.
The dashboard issues API keys, stores only their SHA-256 digests, and
validates them for other services through GET /api/validate-key.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./keydesk.yaml or ~/.keydesk/keydesk.yaml)")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newVersionCmd(a))
	cmd.AddCommand(newKeyCmd(a))
	cmd.AddCommand(newAPIKeyCmd(a))
	cmd.AddCommand(newAdminCmd(a))
	cmd.AddCommand(newDBCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newOpenAPICmd(a))
	cmd.AddCommand(newMCPCmd(a))

	return cmd
}

// loadConfig reads the optional config file, applies KEYDESK_* environment
// overrides and returns the validated configuration. A missing default file
// is fine; a missing file named with --config is an error.
func (a *app) loadConfig() (*config.Config, error) {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("keydesk")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME/.keydesk")
	}
	config.BindEnv(a.v)

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return config.Load(a.v)
}
