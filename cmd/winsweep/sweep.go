package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/platform"
	"github.com/fenilsonani/winsweep/internal/reporter"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/fenilsonani/winsweep/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	sweepAll     bool
	sweepQuick   bool
	dryRun       bool
	assumeYes    bool
	outputFmt    string
	outputFile   string
	manifestFile string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep [targets...]",
	Short: "Delete the files behind cleanup targets",
	Long: `Deletes every regular file below the roots of the given targets.

Targets: temp, prefetch, dumps, thumbnails, browsers, or a single browser
as browser:<vendor> (chrome, edge, firefox, opera, brave). With no targets
the configured selection is swept. Symbolic links are never followed and locked files are
reported, not retried.`,
	Example: `  winsweep sweep --quick
  winsweep sweep temp dumps --dry-run
  winsweep sweep --all --yes --output json --file report.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if cmd.Flags().Changed("dry-run") {
			s.cfg.DryRun = dryRun
		}

		format, err := reporter.ParseFormat(outputFmt)
		if err != nil {
			return err
		}

		targets, err := selectTargets(args, sweepAll, sweepQuick, s.cfg)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No targets selected.")
			return nil
		}

		env := s.cfg.HostEnvironment()
		if err := env.Validate(); err != nil {
			return err
		}

		if !assumeYes && !s.cfg.DryRun {
			if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
				return errors.New("stdin is not a terminal; pass --yes to sweep without confirmation")
			}
			ok, err := confirmSweep(cmd.InOrStdin(), cmd.OutOrStdout(), targets, env)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Sweep cancelled")
				return nil
			}
		}

		sweeper := cleaner.New(s.cfg)
		sweeper.SetLogger(s.logger)

		if s.cfg.DryRun && format == reporter.FormatSummary {
			fmt.Fprintln(cmd.OutOrStdout(), "[DRY RUN MODE] No files will be deleted.")
		}

		live := ui.NewLiveProgress(os.Stderr)
		stop := live.Follow(sweeper.GetProgressReporter())
		outcomes, err := sweeper.Sweep(cmd.Context(), targets, env)
		stop()
		if err != nil {
			return err
		}

		s.record(cmd.Context(), outcomes)

		if outputFile != "" {
			if err := reporter.SaveToFile(outcomes, outputFile, format); err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report saved to: %s\n", outputFile)
		} else if err := reporter.New(cmd.OutOrStdout(), format).Report(outcomes); err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}

		if verbose && format == reporter.FormatSummary {
			ui.PrintFailureTree(cmd.OutOrStdout(), outcomes, 10)
		}

		if manifestFile != "" {
			if err := sweeper.GetManifest().Save(manifestFile); err != nil {
				return fmt.Errorf("failed to save manifest: %w", err)
			}
			s.logger.Info("manifest of %d files written to %s", sweeper.GetManifest().Len(), manifestFile)
		}

		if cmd.Context().Err() != nil {
			return errors.New("sweep interrupted")
		}
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepAll, "all", false, "sweep every target")
	sweepCmd.Flags().BoolVar(&sweepQuick, "quick", false, "sweep temp files, browser caches and thumbnails")
	sweepCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted without actually deleting")
	sweepCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	sweepCmd.Flags().StringVar(&outputFmt, "output", "summary", "output format (summary, table, json, yaml)")
	sweepCmd.Flags().StringVar(&outputFile, "file", "", "save report to file")
	sweepCmd.Flags().StringVar(&manifestFile, "manifest", "", "write the list of deleted files to this path")
	sweepCmd.MarkFlagsMutuallyExclusive("all", "quick")

	rootCmd.AddCommand(sweepCmd)
}

// selectTargets picks the targets from the arguments, the --all/--quick
// shortcuts, or the configuration, in that order
func selectTargets(args []string, all, quick bool, cfg *config.Config) ([]scanner.Target, error) {
	if len(args) > 0 && (all || quick) {
		return nil, errors.New("target names cannot be combined with --all or --quick")
	}

	switch {
	case all:
		return scanner.AllTargets(), nil
	case quick:
		return scanner.QuickTargets(), nil
	case len(args) > 0:
		return scanner.ParseTargets(args)
	default:
		return scanner.ParseTargets(cfg.Targets)
	}
}

// confirmSweep lists what is about to be emptied and reads a y/N answer
func confirmSweep(in io.Reader, out io.Writer, targets []scanner.Target, env *platform.HostEnvironment) (bool, error) {
	fmt.Fprintln(out, "The following locations will be emptied:")
	for _, t := range targets {
		roots, err := scanner.Resolve(t, env)
		if err != nil {
			return false, err
		}
		if len(roots) == 0 {
			fmt.Fprintf(out, "  %-20s (nothing on this host)\n", t.Description())
			continue
		}
		for _, root := range roots {
			fmt.Fprintf(out, "  %-20s %s\n", t.Description(), root)
		}
	}

	fmt.Fprint(out, "\nProceed with sweep? (y/N): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
