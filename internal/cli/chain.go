package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/wire"
)

// ChainCmd returns the chain command tree.
func ChainCmd(app *wire.App) *cobra.Command {
	chainCmd := &cobra.Command{
		Use:   "chain",
		Short: "Manage chains (tracked activity streaks)",
	}

	createCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")

			chain, err := app.Chains.CreateChain(commandContext(), primary.CreateChainRequest{
				Name:        args[0],
				Description: description,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Created chain %s: %s\n", chain.ID, chain.Name)
			return nil
		},
	}
	createCmd.Flags().StringP("description", "d", "", "Chain description")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")

			chains, err := app.Chains.ListChains(commandContext(), status)
			if err != nil {
				return err
			}

			if len(chains) == 0 {
				fmt.Println("No chains found")
				return nil
			}

			fmt.Printf("\n%-10s %-10s %s\n", "ID", "STATUS", "NAME")
			fmt.Println("──────────────────────────────────────────────")
			for _, c := range chains {
				fmt.Printf("%-10s %-10s %s\n", c.ID, c.Status, c.Name)
			}
			fmt.Println()
			return nil
		},
	}
	listCmd.Flags().StringP("status", "s", "", "Filter by status: active or archived")

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show chain details and its scoped rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext()
			chain, err := app.Chains.GetChain(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\nChain:  %s\n", chain.ID)
			fmt.Printf("Name:   %s\n", chain.Name)
			fmt.Printf("Status: %s\n", chain.Status)
			if chain.Description != "" {
				fmt.Printf("Description: %s\n", chain.Description)
			}
			fmt.Println()

			rules, err := app.Rules.ListRules(ctx, primary.ListRulesRequest{ChainID: chain.ID})
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				fmt.Println("No rules scoped to this chain")
				return nil
			}
			fmt.Printf("Scoped rules (%d):\n", len(rules))
			for _, r := range rules {
				fmt.Printf("  %s %s [%s]\n", r.ID, r.Name, r.Type)
			}
			return nil
		},
	}

	archiveCmd := &cobra.Command{
		Use:   "archive [id]",
		Short: "Archive a chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Chains.ArchiveChain(commandContext(), args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Archived chain %s\n", args[0])
			return nil
		},
	}

	chainCmd.AddCommand(createCmd, listCmd, showCmd, archiveCmd)
	return chainCmd
}
