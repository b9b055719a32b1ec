package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/cadence/internal/wire"
)

// StatsCmd returns the stats command tree.
func StatsCmd(app *wire.App) *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats [rule-id]",
		Short: "Show usage statistics",
		Long:  "Without arguments, shows an overview across all rules; with a rule id, shows that rule's usage breakdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext()

			if len(args) == 1 {
				stats, err := app.Stats.GetRuleStats(ctx, args[0])
				if err != nil {
					return err
				}

				fmt.Printf("\nRule: %s (%s)\n", stats.RuleName, stats.RuleID)
				fmt.Printf("Total uses:        %d\n", stats.TotalUses)
				fmt.Printf("  Pauses:          %d\n", stats.PauseUses)
				fmt.Printf("  Early finishes:  %d\n", stats.EarlyCompletions)
				fmt.Printf("Last 7 days:       %d\n", stats.UsesLast7Days)
				fmt.Printf("Last 30 days:      %d\n", stats.UsesLast30Days)
				if stats.LastUsedAt != "" {
					fmt.Printf("Last used:         %s\n", stats.LastUsedAt)
				}
				fmt.Println()
				return nil
			}

			overview, err := app.Stats.GetOverview(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\nRules:  %d total, %d active\n", overview.TotalRules, overview.ActiveRules)
			fmt.Printf("Usages: %d total, %d last 7 days, %d last 30 days\n",
				overview.TotalUsages, overview.UsagesLast7Days, overview.UsagesLast30Days)
			if len(overview.MostUsed) > 0 {
				fmt.Println("\nMost used:")
				for _, s := range overview.MostUsed {
					fmt.Printf("  %-10s %-30s %d\n", s.RuleID, s.RuleName, s.TotalUses)
				}
			}
			fmt.Println()
			return nil
		},
	}

	return statsCmd
}
