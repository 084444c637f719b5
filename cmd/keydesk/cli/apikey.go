package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/keydesk/keydesk/internal/service"
)

func newAPIKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage dashboard API keys",
		Long:  "Create, list, revoke and validate the API keys that other services check through GET /api/validate-key.",
	}

	cmd.AddCommand(newAPIKeyCreateCmd(a))
	cmd.AddCommand(newAPIKeyListCmd(a))
	cmd.AddCommand(newAPIKeyRevokeCmd(a))
	cmd.AddCommand(newAPIKeyValidateCmd(a))

	return cmd
}

// withAPIKeys opens the store and hands an APIKeyService to fn.
func (a *app) withAPIKeys(fn func(ctx context.Context, keys *service.APIKeyService) error) error {
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
	return fn(ctx, service.NewAPIKeyService(st))
}

// ---------- apikey create ----------

func newAPIKeyCreateCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a new API key",
		Long:    "Generate a new API key. The raw key is shown once and cannot be retrieved again.",
		Example: `  keydesk apikey create --name "CI pipeline"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAPIKeys(func(ctx context.Context, keys *service.APIKeyService) error {
				created, err := keys.Create(ctx, name)
				if err != nil {
					return fmt.Errorf("create api key: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "API Key created:")
				fmt.Fprintln(out)
				fmt.Fprintf(out, "  ID:   %d\n", created.Key.ID)
				fmt.Fprintf(out, "  Name: %s\n", created.Key.Name)
				fmt.Fprintf(out, "  Key:  %s\n", created.Secret)
				fmt.Fprintln(out)
				fmt.Fprintln(out, "  Save this key now - it cannot be retrieved again.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Owner name for the key")

	return cmd
}

// ---------- apikey list ----------

func newAPIKeyListCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAPIKeys(func(ctx context.Context, keys *service.APIKeyService) error {
				list, err := keys.List(ctx)
				if err != nil {
					return fmt.Errorf("list api keys: %w", err)
				}

				type keyRow struct {
					ID      int64     `json:"id"`
					Name    string    `json:"name"`
					Status  string    `json:"status"`
					Created time.Time `json:"created_at"`
				}
				rows := make([]keyRow, len(list))
				for i, k := range list {
					rows[i] = keyRow{ID: k.ID, Name: k.Name, Status: k.Status(), Created: k.CreatedAt}
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, rows)
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No API keys found. Use 'keydesk apikey create' to create one.")
					return nil
				}

				fmt.Fprintf(out, "%-6s %-32s %-8s %s\n", "ID", "NAME", "STATUS", "CREATED")
				fmt.Fprintf(out, "%-6s %-32s %-8s %s\n", "--", "----", "------", "-------")
				for _, r := range rows {
					fmt.Fprintf(out, "%-6d %-32s %-8s %s\n", r.ID, r.Name, r.Status, r.Created.Format(time.RFC3339))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// ---------- apikey revoke ----------

func newAPIKeyRevokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid key id %q", args[0])
			}
			return a.withAPIKeys(func(ctx context.Context, keys *service.APIKeyService) error {
				if err := keys.Revoke(ctx, id); err != nil {
					return fmt.Errorf("revoke api key: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "API key %d revoked.\n", id)
				return nil
			})
		},
	}
}

// ---------- apikey validate ----------

func newAPIKeyValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <secret>",
		Short: "Check an API key secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAPIKeys(func(ctx context.Context, keys *service.APIKeyService) error {
				key, err := keys.Validate(ctx, args[0])
				switch {
				case errors.Is(err, service.ErrMissingCredential):
					return errors.New("missing api key")
				case errors.Is(err, service.ErrForbidden):
					return errors.New("invalid or revoked API key")
				case err != nil:
					return fmt.Errorf("validate api key: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK: owner %s\n", key.Name)
				return nil
			})
		},
	}
}
