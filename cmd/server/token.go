package main

import (
	"fmt"
	"time"

	"hexmap-server/internal/auth"
	"hexmap-server/internal/shared/config"

	"github.com/spf13/cobra"
)

var (
	tokenRole string
	tokenTTL  time.Duration
)

// tokenCmd signs a requester token with the configured secret, for local
// development and service-to-service calls.
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Print a signed requester token",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		validator, err := auth.NewValidator(config.GlobalConfig.Auth.JWTSecret)
		if err != nil {
			return err
		}

		var userID string
		if len(args) == 1 {
			userID = args[0]
		}
		if userID == "" && tokenRole != auth.RoleSystem {
			return fmt.Errorf("a user id is required unless --role=%s", auth.RoleSystem)
		}

		token, err := validator.Generate(userID, tokenRole, tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "token role (system grants full access)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
