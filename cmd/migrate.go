package cmd

import (
	"context"
	"log/slog"

	"github.com/agentmarket/popsim/popsim"
	"github.com/spf13/cobra"
)

var resetTables bool

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "create the population and pool tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *popsim.App) error {
			if err := app.DB.InitializeSchema(ctx); err != nil {
				slog.Error("Failed to initialize database schema", slog.String("type", "db"), slog.Any("error", err))
				return err
			}
			if resetTables {
				if err := app.DB.ResetTables(ctx); err != nil {
					return err
				}
			}
			slog.Info("Migration completed successfully!", slog.String("type", "db"))
			return nil
		})
	},
}

func init() {
	migrateCMD.Flags().BoolVar(&resetTables, "reset", false, "truncate every table after creating it")
	rootCmd.AddCommand(migrateCMD)
}
