package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/config"
	"github.com/matsen/pubmanager/internal/server"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.AddCommand(tokenHashCmd)
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin bearer token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := config.AdminSecret()
		if secret == "" {
			exitWithError(ExitConfigError, "no admin secret: set %s or admin_secret in %s",
				config.AdminSecretEnv, config.GlobalConfigPath())
		}
		token, err := server.NewSigner(secret, tokenTTL, 0).IssueToken(tokenSubject, server.CapManageOptions)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(token)
			return nil
		}
		return outputJSON(map[string]string{"token": token})
	},
}

var tokenHashCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for admin_password_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := server.HashPassword(args[0])
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(hash)
			return nil
		}
		return outputJSON(map[string]string{"admin_password_hash": hash})
	},
}
