package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentmarket/popsim/internal/domain/population"
	"github.com/agentmarket/popsim/popsim"
	"github.com/spf13/cobra"
)

var populateFlags struct {
	count         int
	batchSize     int
	maxConcurrent int
	force         bool
}

var populateCMD = &cobra.Command{
	Use:   "populate",
	Short: "create and fund a batch of agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *popsim.App) error {
			if err := app.SetupPopulation(ctx); err != nil {
				return err
			}

			req := population.Request{
				Count:         populateFlags.count,
				BatchSize:     populateFlags.batchSize,
				MaxConcurrent: populateFlags.maxConcurrent,
				Force:         populateFlags.force,
			}
			if req.Count == 0 {
				req.Count = cfg.Population.DefaultCount
			}

			report, err := app.Population.CreatePopulation(ctx, req)
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
			}

			var lowBalance *population.LowBalanceError
			if errors.As(err, &lowBalance) {
				slog.Warn("Run stopped before funding",
					slog.String("type", "chain"),
					slog.String("balance", lowBalance.Balance.String()),
					slog.String("required", lowBalance.Required.String()))
			}
			return err
		})
	},
}

func init() {
	f := populateCMD.Flags()
	f.IntVarP(&populateFlags.count, "count", "n", 0, "number of agents to create (default from config)")
	f.IntVar(&populateFlags.batchSize, "batch-size", 0, "agents per batch (default from config)")
	f.IntVar(&populateFlags.maxConcurrent, "max-concurrent", 0, "concurrent slots per batch (default from config)")
	f.BoolVar(&populateFlags.force, "force", false, "continue when the funder balance looks too low")
	rootCmd.AddCommand(populateCMD)
}
