package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/cadence/internal/ports/secondary"
	"github.com/example/cadence/internal/wire"
)

// LogCmd returns the log command for browsing the audit trail.
func LogCmd(app *wire.App) *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Show the audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, _ := cmd.Flags().GetString("entity")
			id, _ := cmd.Flags().GetString("id")
			action, _ := cmd.Flags().GetString("action")
			limit, _ := cmd.Flags().GetInt("limit")

			entries, err := app.AuditRepo.List(commandContext(), secondary.AuditFilters{
				EntityType: entity,
				EntityID:   id,
				Action:     action,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No audit entries")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%-10s %-20s %-7s %s %s", e.ID, e.CreatedAt, e.Action, e.EntityType, e.EntityID)
				if e.FieldName != "" {
					fmt.Printf(" %s: %q -> %q", e.FieldName, e.OldValue, e.NewValue)
				}
				if e.ActorID != "" {
					fmt.Printf(" (by %s)", e.ActorID)
				}
				fmt.Println()
			}
			return nil
		},
	}

	logCmd.Flags().StringP("entity", "e", "", "Filter by entity type: rule, usage, chain")
	logCmd.Flags().String("id", "", "Filter by entity id")
	logCmd.Flags().StringP("action", "a", "", "Filter by action: create, update, delete")
	logCmd.Flags().IntP("limit", "n", 50, "Maximum entries to show")

	return logCmd
}
