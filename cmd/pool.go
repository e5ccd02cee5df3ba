package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentmarket/popsim/internal/domain/liquidity"
	"github.com/agentmarket/popsim/popsim"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var quoteFlags struct {
	side   string
	amount string
}

var historyLimit int

var simulateTrades []string

var poolCMD = &cobra.Command{
	Use:   "pool",
	Short: "inspect or initialize the liquidity pool",
}

var poolInitCMD = &cobra.Command{
	Use:   "init",
	Short: "create the pool with the configured reserves if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *popsim.App) error {
			pool, created, err := app.Pool.EnsurePoolInitialized(ctx, cfg.Pool.InitialReserveA, cfg.Pool.InitialReserveB)
			if err != nil {
				return err
			}
			if !created {
				slog.Info("Pool already initialized", slog.String("type", "pool"), slog.String("pool", pool.ID))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPool(pool))
			return nil
		})
	},
}

var poolShowCMD = &cobra.Command{
	Use:   "show",
	Short: "show the pool state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *popsim.App) error {
			pool, err := app.Pool.GetPool(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPool(pool))
			return nil
		})
	},
}

var poolQuoteCMD = &cobra.Command{
	Use:   "quote",
	Short: "quote a swap against the current reserves without executing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		side, err := liquidity.ParseSide(quoteFlags.side)
		if err != nil {
			return err
		}
		amount, err := decimal.NewFromString(quoteFlags.amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", quoteFlags.amount, err)
		}
		return withApp(cmd, func(ctx context.Context, app *popsim.App) error {
			q, err := app.Pool.Quote(ctx, side, amount)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderQuote(q))
			return nil
		})
	},
}

var poolHistoryCMD = &cobra.Command{
	Use:   "history",
	Short: "show recent pool prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *popsim.App) error {
			points, err := app.Pool.History(ctx, historyLimit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(points))
			return nil
		})
	},
}

var poolSimulateCMD = &cobra.Command{
	Use:     "simulate",
	Short:   "apply a sequence of swaps to a copy of the pool without writing anything",
	Example: "  popsim pool simulate --trade buy:2.5 --trade sell:1000",
	RunE: func(cmd *cobra.Command, args []string) error {
		trades := make([]liquidity.Trade, 0, len(simulateTrades))
		for _, t := range simulateTrades {
			trade, err := liquidity.ParseTrade(t)
			if err != nil {
				return err
			}
			trades = append(trades, trade)
		}
		return withApp(cmd, func(ctx context.Context, app *popsim.App) error {
			sim, err := app.Pool.Simulate(ctx, trades)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSimulation(sim))
			return nil
		})
	},
}

func init() {
	poolQuoteCMD.Flags().StringVar(&quoteFlags.side, "side", "buy", "buy or sell")
	poolQuoteCMD.Flags().StringVar(&quoteFlags.amount, "amount", "", "input amount")
	_ = poolQuoteCMD.MarkFlagRequired("amount")
	poolHistoryCMD.Flags().IntVar(&historyLimit, "limit", 20, "number of points")
	poolSimulateCMD.Flags().StringArrayVar(&simulateTrades, "trade", nil, "side:amount, repeat in order")
	_ = poolSimulateCMD.MarkFlagRequired("trade")

	poolCMD.AddCommand(poolInitCMD, poolShowCMD, poolQuoteCMD, poolHistoryCMD, poolSimulateCMD)
	rootCmd.AddCommand(poolCMD)
}
