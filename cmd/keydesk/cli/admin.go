package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keydesk/keydesk/internal/service"
)

const minPasswordLength = 8

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin account helpers",
		Long:  "Helpers for the single configured dashboard administrator.",
	}

	cmd.AddCommand(newAdminHashPasswordCmd())

	return cmd
}

// ---------- admin hash-password ----------

func newAdminHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for auth.admin_pass",
		Long: `Prompt for a password twice and print its bcrypt hash. Put the hash in
auth.admin_pass (or KEYDESK_AUTH_ADMIN_PASS) instead of the plaintext.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stderr := cmd.ErrOrStderr()
			password, err := readSecret(stderr, "Password: ")
			if err != nil {
				return err
			}
			confirm, err := readSecret(stderr, "Confirm password: ")
			if err != nil {
				return err
			}

			hash, err := hashAdminPassword(password, confirm)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// hashAdminPassword checks the confirmation and length, then hashes.
func hashAdminPassword(password, confirm string) (string, error) {
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	hash, err := service.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
