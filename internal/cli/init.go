package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/cadence/internal/config"
	"github.com/example/cadence/internal/db"
	"github.com/example/cadence/internal/wire"
)

// InitCmd returns the init command.
func InitCmd(app *wire.App) *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the Cadence config and database",
		Long:  "Writes the default config to ~/.cadence/config.json and seeds the database with starter rules.",
		RunE: func(cmd *cobra.Command, args []string) error {
			noSeed, _ := cmd.Flags().GetBool("no-seed")

			dir, err := config.Dir()
			if err != nil {
				return err
			}
			if err := config.Save(dir, app.Config); err != nil {
				return err
			}
			fmt.Printf("✓ Config written to %s\n", dir)

			if !noSeed {
				if err := db.Seed(app.DB); err != nil {
					return fmt.Errorf("failed to seed database: %w", err)
				}
				fmt.Println("✓ Database seeded with starter rules")
			}

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  cadence rule list")
			fmt.Println("  cadence rule create \"Bathroom break\" --type PAUSE_ONLY")

			return nil
		},
	}
	initCmd.Flags().Bool("no-seed", false, "Skip seeding starter rules")

	return initCmd
}
