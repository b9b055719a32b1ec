package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/cadence/internal/config"
	"github.com/example/cadence/internal/models"
	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/wire"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command for environment validation.
func DoctorCmd(app *wire.App) *cobra.Command {
	var quiet bool
	var prune bool

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the Cadence environment",
		Long: `Health check for Cadence.

Validates:
- Config directory and config.json
- Database connectivity
- Lingering temporary-id rules (repair with 'cadence rule sync')

Examples:
  cadence doctor          # Run full health check
  cadence doctor --quiet  # Exit code only (0=healthy, 1=issues)
  cadence doctor --prune  # Also prune old audit entries`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext()
			results := []CheckResult{
				checkConfig(),
				checkDatabase(app),
				checkTempRules(app),
			}

			if prune {
				deleted, err := app.AuditRepo.PruneOlderThan(ctx, app.Config.AuditRetentionDays)
				if err != nil {
					results = append(results, CheckResult{Name: "Audit prune", Status: "✗", Details: err.Error()})
				} else {
					results = append(results, CheckResult{Name: "Audit prune", Status: "✓", Details: fmt.Sprintf("%d entries removed", deleted)})
				}
			}

			hasErrors := false
			for _, r := range results {
				if r.Status == "✗" {
					hasErrors = true
					break
				}
			}

			if !quiet {
				for _, r := range results {
					fmt.Printf("%s %s", r.Status, r.Name)
					if r.Details != "" && r.Status != "✓" {
						fmt.Printf(" - %s", r.Details)
					}
					fmt.Println()
				}
			}

			if hasErrors {
				return fmt.Errorf("environment has issues")
			}
			return nil
		},
	}

	doctorCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Exit code only")
	doctorCmd.Flags().BoolVar(&prune, "prune", false, "Prune audit entries past the retention window")

	return doctorCmd
}

func checkConfig() CheckResult {
	dir, err := config.Dir()
	if err != nil {
		return CheckResult{Name: "Config", Status: "✗", Details: err.Error()}
	}
	if _, err := config.Load(dir); err != nil {
		return CheckResult{Name: "Config", Status: "✗", Details: err.Error()}
	}
	return CheckResult{Name: "Config", Status: "✓"}
}

func checkDatabase(app *wire.App) CheckResult {
	if err := app.DB.Ping(); err != nil {
		return CheckResult{Name: "Database", Status: "✗", Details: err.Error()}
	}
	return CheckResult{Name: "Database", Status: "✓"}
}

func checkTempRules(app *wire.App) CheckResult {
	rules, err := app.Rules.ListRules(commandContext(), primary.ListRulesRequest{IncludeInactive: true})
	if err != nil {
		return CheckResult{Name: "Rule identifiers", Status: "✗", Details: err.Error()}
	}

	lingering := 0
	for _, r := range rules {
		if models.IsTemporaryID(r.ID) {
			lingering++
		}
	}
	if lingering > 0 {
		return CheckResult{
			Name:    "Rule identifiers",
			Status:  "⚠",
			Details: fmt.Sprintf("%d temporary-id rule(s); run 'cadence rule sync'", lingering),
		}
	}
	return CheckResult{Name: "Rule identifiers", Status: "✓"}
}
