package cli

import (
	"os"

	"github.com/spf13/cobra"

	cliadapter "github.com/example/cadence/internal/adapters/cli"
	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/wire"
)

// RuleCmd returns the rule command tree.
func RuleCmd(app *wire.App) *cobra.Command {
	adapter := cliadapter.NewRuleAdapter(app.Rules, os.Stdout)

	ruleCmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage exception rules",
		Long:  "Create, search, apply, and maintain the exception rules that justify pausing or finishing a session early",
	}

	createCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new exception rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleType, _ := cmd.Flags().GetString("type")
			scope, _ := cmd.Flags().GetString("scope")
			chainID, _ := cmd.Flags().GetString("chain")
			description, _ := cmd.Flags().GetString("description")
			allowDup, _ := cmd.Flags().GetBool("allow-duplicate")
			optimistic, _ := cmd.Flags().GetBool("async")
			wait, _ := cmd.Flags().GetBool("wait")

			req := primary.CreateRuleRequest{
				Name:           args[0],
				Type:           ruleType,
				Scope:          scope,
				ChainID:        chainID,
				Description:    description,
				AllowDuplicate: allowDup,
			}
			if optimistic {
				return adapter.CreateOptimistic(commandContext(), req, wait)
			}
			return adapter.Create(commandContext(), req)
		},
	}
	createCmd.Flags().StringP("type", "t", "", "Rule type: PAUSE_ONLY or EARLY_COMPLETION_ONLY")
	createCmd.Flags().StringP("scope", "s", "", "Rule scope: chain or global (default global)")
	createCmd.Flags().StringP("chain", "c", "", "Chain ID for chain-scoped rules")
	createCmd.Flags().StringP("description", "d", "", "Rule description")
	createCmd.Flags().Bool("allow-duplicate", false, "Create even when an exact-name duplicate exists")
	createCmd.Flags().Bool("async", false, "Return a temporary id immediately and persist in the background")
	createCmd.Flags().Bool("wait", false, "With --async, block until the store-issued id is known")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List exception rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, _ := cmd.Flags().GetString("scope")
			ruleType, _ := cmd.Flags().GetString("type")
			chainID, _ := cmd.Flags().GetString("chain")
			all, _ := cmd.Flags().GetBool("all")

			return adapter.List(commandContext(), primary.ListRulesRequest{
				Scope:           scope,
				Type:            ruleType,
				ChainID:         chainID,
				IncludeInactive: all,
			})
		},
	}
	listCmd.Flags().StringP("scope", "s", "", "Filter by scope")
	listCmd.Flags().StringP("type", "t", "", "Filter by type")
	listCmd.Flags().StringP("chain", "c", "", "Filter by chain ID")
	listCmd.Flags().BoolP("all", "a", false, "Include deleted rules")

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show rule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adapter.Show(commandContext(), args[0])
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update a rule's name or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := primary.UpdateRuleRequest{RuleID: args[0]}
			if cmd.Flags().Changed("name") {
				name, _ := cmd.Flags().GetString("name")
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				description, _ := cmd.Flags().GetString("description")
				req.Description = &description
			}
			allowDup, _ := cmd.Flags().GetBool("allow-duplicate")
			req.AllowDuplicate = allowDup

			return adapter.Update(commandContext(), req)
		},
	}
	updateCmd.Flags().StringP("name", "n", "", "New rule name")
	updateCmd.Flags().StringP("description", "d", "", "New rule description")
	updateCmd.Flags().Bool("allow-duplicate", false, "Rename even when an exact-name duplicate exists")

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Soft-delete a rule (usage history is preserved)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adapter.Delete(commandContext(), args[0])
		},
	}

	useCmd := &cobra.Command{
		Use:   "use [id]",
		Short: "Record applying a rule to a session action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, _ := cmd.Flags().GetString("action")
			chainID, _ := cmd.Flags().GetString("chain")
			chainName, _ := cmd.Flags().GetString("chain-name")
			elapsed, _ := cmd.Flags().GetInt("elapsed")
			remaining, _ := cmd.Flags().GetInt("remaining")

			return adapter.Use(commandContext(), primary.UseRuleRequest{
				RuleID:           args[0],
				ActionType:       action,
				ChainID:          chainID,
				ChainName:        chainName,
				ElapsedSeconds:   elapsed,
				RemainingSeconds: remaining,
			})
		},
	}
	useCmd.Flags().StringP("action", "a", "", "Session action: pause or early_completion")
	useCmd.Flags().StringP("chain", "c", "", "Chain the session belongs to")
	useCmd.Flags().String("chain-name", "", "Chain name snapshot for the record")
	useCmd.Flags().Int("elapsed", 0, "Seconds elapsed in the session")
	useCmd.Flags().Int("remaining", 0, "Seconds remaining in the session")

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search rules by name and description",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if live, _ := cmd.Flags().GetBool("live"); live {
				return adapter.SearchLive(commandContext(), cmd.InOrStdin())
			}
			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			return adapter.Search(commandContext(), query)
		},
	}
	searchCmd.Flags().Bool("live", false, "Read queries from stdin and search as you type")

	suggestCmd := &cobra.Command{
		Use:   "suggest [partial]",
		Short: "Suggest alternative rule names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adapter.Suggest(commandContext(), args[0])
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate [id]",
		Short: "Classify a rule identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return adapter.Validate(commandContext(), args[0])
		},
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile temporary-id state after an interrupted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return adapter.Sync(commandContext())
		},
	}

	ruleCmd.AddCommand(createCmd, listCmd, showCmd, updateCmd, deleteCmd, useCmd, searchCmd, suggestCmd, validateCmd, syncCmd)
	return ruleCmd
}
