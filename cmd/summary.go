package cmd

import (
	"context"
	"fmt"

	"github.com/agentmarket/popsim/popsim"
	"github.com/spf13/cobra"
)

var summaryFlags struct {
	activity int
	unfunded int
}

var summaryCMD = &cobra.Command{
	Use:   "summary",
	Short: "show the population summary and check it against the agent rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *popsim.App) error {
			summary, err := app.Ledger.GetSummary(ctx)
			if err != nil {
				return err
			}
			integrity, err := app.VerifyOnly().VerifySummary(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSummary(summary, integrity))

			if summaryFlags.activity > 0 {
				entries, err := app.Activity.Recent(ctx, summaryFlags.activity)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderActivity(entries))
			}
			if summaryFlags.unfunded > 0 {
				agents, err := app.Ledger.ListUnfunded(ctx, summaryFlags.unfunded)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderUnfunded(agents))
			}
			return nil
		})
	},
}

func init() {
	summaryCMD.Flags().IntVar(&summaryFlags.activity, "activity", 10, "number of recent activity entries to show")
	summaryCMD.Flags().IntVar(&summaryFlags.unfunded, "unfunded", 0, "list up to this many agents whose funding failed")
	rootCmd.AddCommand(summaryCMD)
}
