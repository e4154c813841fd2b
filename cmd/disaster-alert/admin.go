package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr1hm/disaster-reports/internal/config"
	"github.com/mr1hm/disaster-reports/internal/logging"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create or promote an admin account",
	Long: `Creates an admin account with the given email, or promotes the existing
account that uses it. Running it again is a no-op.

	disaster-alert create-admin --email ops@example.org --password 's3cretpass'

Flags fall back to ADMIN_EMAIL, ADMIN_PASSWORD and ADMIN_NAME.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logging.Setup(cfg.Logging.Level)

		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		name, _ := cmd.Flags().GetString("name")
		if email == "" {
			email = cfg.Admin.Email
		}
		if password == "" {
			password = cfg.Admin.Password
		}
		if name == "" {
			name = cfg.Admin.Name
		}
		if email == "" || password == "" {
			return errors.New("an email and password are required")
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		user, created, err := a.sessions.EnsureAdmin(cmd.Context(), email, password, name)
		if err != nil {
			return err
		}

		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %s)\n", user.Email, user.ID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s already present (id %s)\n", user.Email, user.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd)

	createAdminCmd.Flags().String("email", "", "admin email address")
	createAdminCmd.Flags().String("password", "", "admin password (8-128 chars, letters and digits)")
	createAdminCmd.Flags().String("name", "", "display name")
}
