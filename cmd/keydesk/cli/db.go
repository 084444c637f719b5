package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "db",
		Aliases: []string{"database"},
		Short:   "Manage the keydesk database",
		Long:    "Apply migrations and check connectivity of the configured store (sqlite, postgres or mysql).",
	}

	cmd.AddCommand(newDBMigrateCmd(a))
	cmd.AddCommand(newDBPingCmd(a))

	return cmd
}

// ---------- db migrate ----------

func newDBMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the keys and api_keys tables if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			// Open applies migrations; Migrate again is a no-op on an
			// up-to-date schema.
			ctx := context.Background()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s).\n", st.Driver())
			return nil
		},
	}
}

// ---------- db ping ----------

func newDBPingCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			start := time.Now()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Ping(ctx); err != nil {
				return fmt.Errorf("ping %s: %w", st.Driver(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %s reachable in %s\n", st.Driver(), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Connection timeout")

	return cmd
}
