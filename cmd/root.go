package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentmarket/popsim/popsim"
	"github.com/agentmarket/popsim/popsim/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *popsim.Config

	version = "dev"
	commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "popsim",
	Short:         "Bootstrap a funded agent population and its liquidity pool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := popsim.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		slog.SetDefault(logger.New(logger.Options{
			Level:     cfg.Log.Level,
			Format:    cfg.Log.Format,
			AddSource: cfg.Log.AddSource,
		}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to config")
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute(v, c string) {
	version, commit = v, c
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// withApp connects the database and hands the app to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *popsim.App) error) error {
	ctx := cmd.Context()
	app := popsim.New(cfg, version, commit)
	defer app.Close()

	if err := app.ConnectDB(ctx); err != nil {
		return err
	}
	return fn(ctx, app)
}
