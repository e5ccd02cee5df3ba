package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var archetypesCMD = &cobra.Command{
	Use:   "archetypes [query]",
	Short: "list the configured archetypes, optionally fuzzy matched",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := cfg.Table()
		if err := table.Validate(); err != nil {
			return err
		}
		list := table.Archetypes
		if len(args) == 1 {
			list = table.Find(args[0])
			if len(list) == 0 {
				return fmt.Errorf("no archetype matches %q", args[0])
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderArchetypes(list))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archetypesCMD)
}
