package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/wire"
)

// ExportCmd returns the export command.
func ExportCmd(app *wire.App) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export rules (and usage history) to a file",
		Long:  "Writes the full rule set to the given file. The format follows the file extension: .json or .csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			defer f.Close()

			ctx := commandContext()
			switch {
			case strings.HasSuffix(path, ".csv"):
				err = app.Porting.ExportCSV(ctx, f)
			default:
				err = app.Porting.ExportJSON(ctx, f)
			}
			if err != nil {
				return err
			}

			fmt.Printf("✓ Exported to %s\n", path)
			return nil
		},
	}

	return exportCmd
}

// ImportCmd returns the import command.
func ImportCmd(app *wire.App) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import rules from a JSON or CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			skip, _ := cmd.Flags().GetBool("skip-duplicates")
			update, _ := cmd.Flags().GetBool("update-existing")
			opts := primary.ImportOptions{SkipDuplicates: skip, UpdateExisting: update}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer f.Close()

			ctx := commandContext()
			var report *primary.ImportReport
			switch {
			case strings.HasSuffix(path, ".csv"):
				report, err = app.Porting.ImportCSV(ctx, f, opts)
			default:
				report, err = app.Porting.ImportJSON(ctx, f, opts)
			}
			if err != nil {
				return err
			}

			fmt.Printf("✓ Imported %d, updated %d, skipped %d\n",
				len(report.Imported), len(report.Updated), len(report.Skipped))
			for _, e := range report.Errors {
				name := e.Name
				if name == "" {
					name = "(unnamed)"
				}
				fmt.Printf("  ✗ %s: %s\n", name, e.Reason)
			}
			if len(report.Errors) > 0 {
				return fmt.Errorf("%d item(s) failed to import", len(report.Errors))
			}
			return nil
		},
	}
	importCmd.Flags().Bool("skip-duplicates", false, "Skip entries colliding with an existing rule")
	importCmd.Flags().Bool("update-existing", false, "Update the colliding rule instead of skipping")

	return importCmd
}
