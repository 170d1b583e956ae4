package main

import (
	"fmt"

	"github.com/fenilsonani/winsweep/internal/reporter"
	"github.com/fenilsonani/winsweep/internal/ui"
	"github.com/spf13/cobra"
)

var interactiveDryRun bool

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"ui", "i"},
	Short:   "Choose targets in a terminal UI",
	Long: `Measures every target, lets you pick which ones to sweep, asks for
confirmation and shows live progress. Press ? inside the UI for help.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if cmd.Flags().Changed("dry-run") {
			s.cfg.DryRun = interactiveDryRun
		}

		outcomes, err := ui.RunInteractive(cmd.Context(), s.cfg, s.logger)
		if err != nil {
			return err
		}
		if outcomes == nil {
			return nil
		}

		s.record(cmd.Context(), outcomes)

		t := reporter.Sum(outcomes)
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d of %d files.\n", t.Deleted, t.Attempted)
		return nil
	},
}

func init() {
	interactiveCmd.Flags().BoolVar(&interactiveDryRun, "dry-run", false, "measure only, delete nothing")
	rootCmd.AddCommand(interactiveCmd)
}
