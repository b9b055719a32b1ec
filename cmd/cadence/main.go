package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/cadence/internal/cli"
	"github.com/example/cadence/internal/version"
	"github.com/example/cadence/internal/wire"
)

func main() {
	app, err := wire.NewApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer app.Close()

	rootCmd := &cobra.Command{
		Use:     "cadence",
		Short:   "Cadence - exception rules for your session streaks",
		Version: version.String(),
		Long: `Cadence manages the exception rules of a session tracker: named,
reusable justifications for pausing a session or finishing it early,
with duplicate detection, ranked search, and a full usage history.`,
	}

	rootCmd.AddCommand(cli.InitCmd(app))
	rootCmd.AddCommand(cli.DoctorCmd(app))
	rootCmd.AddCommand(cli.RuleCmd(app))
	rootCmd.AddCommand(cli.ChainCmd(app))
	rootCmd.AddCommand(cli.StatsCmd(app))
	rootCmd.AddCommand(cli.ExportCmd(app))
	rootCmd.AddCommand(cli.ImportCmd(app))
	rootCmd.AddCommand(cli.LogCmd(app))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
