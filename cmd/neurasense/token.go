package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/neurasense/connect/internal/adapters/driven/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint an identity token for local development",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.IdentityJWTSecret == "" {
			return errors.New("IDENTITY_JWT_SECRET is required")
		}

		email, _ := cmd.Flags().GetString("email")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := auth.NewAdapter(cfg.IdentityJWTSecret).Issue(args[0], email, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("email", "", "Email claim")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
}
