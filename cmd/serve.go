package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentmarket/popsim/backend"
	"github.com/agentmarket/popsim/backend/handlers"
	"github.com/agentmarket/popsim/popsim"
	"github.com/spf13/cobra"
)

var serveCMD = &cobra.Command{
	Use:   "serve",
	Short: "serve the read-only status API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *popsim.App) error {
			server := backend.NewServer(&handlers.WebApp{
				Ledger:   app.Ledger,
				Activity: app.Activity,
				Verifier: app.VerifyOnly(),
				Pool:     app.Pool,
				Table:    cfg.Table(),
				Version:  version,
				Commit:   commit,
			}, backend.Options{
				AllowOrigins: cfg.Web.AllowOrigins,
				RateLimit:    cfg.Web.RateLimit,
			})

			address := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
			slog.Info("Starting status server", slog.String("type", "sys"), slog.String("address", address))

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Listen(address)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("Shutting down status server...", slog.String("type", "sys"))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return server.ShutdownWithContext(shutdownCtx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCMD)
}
