package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fenilsonani/winsweep/internal/history"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	pruneDays    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past sweeps",
	Long:  `Lists recorded sweeps, newest first. Sweeps from the CLI, the API and the daemon are all recorded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListCmd.RunE(cmd, args)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sweeps",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(s *session, store *history.Store) error {
			runs, err := store.List(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sweeps recorded yet.")
				return nil
			}
			return printRuns(cmd.OutOrStdout(), runs)
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded sweep",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}

		return withHistory(func(s *session, store *history.Store) error {
			run, err := store.Get(cmd.Context(), id)
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("no sweep with id %s", id)
			}
			if err != nil {
				return err
			}
			return printRun(cmd.OutOrStdout(), run)
		})
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old history entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(s *session, store *history.Store) error {
			days := s.cfg.History.RetentionDays
			if cmd.Flags().Changed("days") {
				days = pruneDays
			}
			if days <= 0 {
				return errors.New("nothing to prune: set --days or history.retention_days")
			}

			removed, err := store.Prune(cmd.Context(), time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d sweeps older than %d days\n", removed, days)
			return nil
		})
	},
}

func init() {
	historyCmd.PersistentFlags().IntVar(&historyLimit, "limit", 20, "number of sweeps to list (0 for all)")
	historyPruneCmd.Flags().IntVar(&pruneDays, "days", 0, "remove sweeps older than this many days")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func withHistory(fn func(*session, *history.Store) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	store, err := s.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("history is disabled; set history.enabled in the config file")
	}
	defer store.Close()

	return fn(s, store)
}

func printRuns(w io.Writer, runs []history.SweepRun) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSOURCE\tDELETED\tFAILED\tFREED\t")
	for _, r := range runs {
		flags := ""
		if r.DryRun {
			flags += " (dry run)"
		}
		if r.Cancelled {
			flags += " (cancelled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\n",
			r.ID, humanize.Time(r.StartedAt), r.Source, r.Deleted, r.Attempted, r.Failed,
			humanize.IBytes(uint64(r.BytesFreed)), flags)
	}
	return tw.Flush()
}

func printRun(w io.Writer, r *history.SweepRun) error {
	fmt.Fprintf(w, "Run:      %s\n", r.ID)
	fmt.Fprintf(w, "Started:  %s (%s)\n", r.StartedAt.Local().Format(time.DateTime), humanize.Time(r.StartedAt))
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(r.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Source:   %s\n", r.Source)
	fmt.Fprintf(w, "Dry run:  %t\n", r.DryRun)
	if r.Cancelled {
		fmt.Fprintln(w, "Cancelled before it finished")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tDELETED\tFAILED\tFREED\tDIRS")
	for _, t := range r.Targets {
		fmt.Fprintf(tw, "%s\t%d/%d\t%d\t%s\t%d\n",
			t.Target, t.Deleted, t.Attempted, t.Failed, humanize.IBytes(uint64(t.BytesFreed)), t.DirsRemoved)
	}
	return tw.Flush()
}
