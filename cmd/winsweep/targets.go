package main

import (
	"fmt"
	"io"

	"github.com/fenilsonani/winsweep/internal/platform"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/spf13/cobra"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List cleanup targets and where they live on this host",
	Long:  `Resolves every target against the host environment without touching any file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		env := s.cfg.HostEnvironment()
		if err := env.Validate(); err != nil {
			return err
		}

		enabled := make(map[scanner.Target]bool)
		for _, t := range s.cfg.EnabledTargets() {
			enabled[t] = true
		}

		return printTargets(cmd.OutOrStdout(), env, enabled)
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}

func printTargets(w io.Writer, env *platform.HostEnvironment, enabled map[scanner.Target]bool) error {
	for _, t := range scanner.AllTargets() {
		roots, err := scanner.Resolve(t, env)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", t, err)
		}

		mark := " "
		if enabled[t] {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-16s %s\n", mark, t, t.Description())
		if len(roots) == 0 {
			fmt.Fprintln(w, "    (nothing on this host)")
		}
		for _, root := range roots {
			fmt.Fprintf(w, "    %s\n", root)
		}
	}

	fmt.Fprintln(w, "\n* selected by default")
	return nil
}
