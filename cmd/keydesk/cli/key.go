package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/service"
)

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage registry license keys",
		Long:  "Add license keys to the registry and verify whether a key is still valid.",
	}

	cmd.AddCommand(newKeyAddCmd(a))
	cmd.AddCommand(newKeyVerifyCmd(a))
	cmd.AddCommand(newKeyListCmd(a))

	return cmd
}

// ---------- key add ----------

func newKeyAddCmd(a *app) *cobra.Command {
	var keyType string

	cmd := &cobra.Command{
		Use:   "add <key>",
		Short: "Register a license key",
		Long: `Register a license key with an expiry derived from its type.
The admin secret is read from auth.admin_secret (or KEYDESK_AUTH_ADMIN_SECRET)
and prompted for when unset.`,
		Example: `  keydesk key add ABC123 --type day
  KEYDESK_AUTH_ADMIN_SECRET=s3cret keydesk key add XYZ --type lifetime`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyAdd(cmd, a, args[0], keyType)
		},
	}

	names := make([]string, len(model.KeyTypes))
	for i, t := range model.KeyTypes {
		names[i] = string(t)
	}
	cmd.Flags().StringVarP(&keyType, "type", "t", string(model.KeyTypeDay), "Key type ("+strings.Join(names, ", ")+")")

	return cmd
}

func runKeyAdd(cmd *cobra.Command, a *app, key, keyType string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	secret := cfg.Auth.AdminSecret
	if secret == "" {
		secret, err = readSecret(cmd.ErrOrStderr(), "Admin secret: ")
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	registry := service.NewRegistryService(st, secret)
	res, err := registry.AddKey(ctx, key, keyType, secret)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return fmt.Errorf("invalid key or type %q", keyType)
	case errors.Is(err, service.ErrUnauthorized):
		return errors.New("admin secret is required")
	case err != nil:
		return fmt.Errorf("add key: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", res.Message, key, keyType)
	return nil
}

// ---------- key verify ----------

func newKeyVerifyCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify <key>",
		Short: "Check whether a license key is valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyVerify(cmd, a, args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyVerify(cmd *cobra.Command, a *app, key string, jsonOutput bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := service.NewRegistryService(st, cfg.Auth.AdminSecret).VerifyKey(ctx, key)
	if err != nil {
		return fmt.Errorf("verify key: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	return nil
}

// ---------- key list ----------

func newKeyListCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registry license keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			keys, err := service.NewRegistryService(st, cfg.Auth.AdminSecret).ListKeys(ctx)
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), keys)
			}

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No keys found. Add one with: keydesk key add <key> --type day")
				return nil
			}
			fmt.Fprintf(out, "%-32s %-9s %-8s %s\n", "KEY", "TYPE", "STATUS", "EXPIRES")
			fmt.Fprintf(out, "%-32s %-9s %-8s %s\n", "---", "----", "------", "-------")
			for _, k := range keys {
				status, expires := "valid", "never"
				if k.Expired {
					status = "expired"
				}
				if k.Expiration != nil {
					expires = k.Expiration.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%-32s %-9s %-8s %s\n", k.Key.Key, k.Type, status, expires)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
