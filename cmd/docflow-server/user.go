package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/docflow-server/internal/app"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

// promoteCmd is the only way to create an administrator; registration always yields a regular user.
var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant the admin role to an existing account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		user, err := app.PromoteUser(cmd.Context(), &cfg, args[0])
		if err != nil {
			return fmt.Errorf("promote %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", user.Email, user.ID, user.Role)
		return nil
	},
}

func init() {
	userCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(userCmd)
}
