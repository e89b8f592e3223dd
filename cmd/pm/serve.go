package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/config"
	"github.com/matsen/pubmanager/internal/server"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin API and public author views",
	Long: `Serve the admin API and public author views over HTTP.

Admin routes need a bearer token with the manage_options capability (see
"pm token") and a per-action nonce from GET /admin/nonce. The signing
secret comes from PM_ADMIN_SECRET or admin_secret in the global config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := config.AdminSecret()
		if secret == "" {
			exitWithError(ExitConfigError, "no admin secret: set %s or admin_secret in %s",
				config.AdminSecretEnv, config.GlobalConfigPath())
		}

		a := openApp()
		defer a.Close()

		srv := server.New(server.Deps{
			Importer:     a.pipeline(),
			Repair:       a.repair,
			Authors:      a.registry,
			Publications: a.rel,
		}, server.Options{
			Secret:       secret,
			PasswordHash: config.AdminPasswordHash(),
		}, slog.Default())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.Run(ctx, serveAddr); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		return nil
	},
}
