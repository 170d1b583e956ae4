package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fenilsonani/winsweep/internal/system"
	"github.com/spf13/cobra"
)

var (
	launchDrive string
	launchAuto  bool
	launchWait  bool
)

var autostartCmd = &cobra.Command{
	Use:       "autostart on|off|status",
	Short:     "Start winsweep when you log on",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		switch args[0] {
		case "on", "off":
			if err := system.SetAutostart(args[0] == "on"); err != nil {
				return unsupported(err)
			}
		}

		enabled, err := system.AutostartEnabled()
		if err != nil {
			return unsupported(err)
		}
		if enabled {
			fmt.Fprintln(out, "Autostart: enabled")
		} else {
			fmt.Fprintln(out, "Autostart: disabled")
		}
		return nil
	},
}

var launchCmd = &cobra.Command{
	Use:   "launch <tool>",
	Short: "Run a built-in Windows maintenance tool",
	Long: fmt.Sprintf(`Runs one of the Windows maintenance tools against the configured drive.

Available tools: %v

defrag and chkdsk are waited for and their exit status is reported.
cleanmgr and perfmon open their own window and are not waited for unless
--wait is given.`, system.ToolNames()),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		drive := s.cfg.Launcher.Drive
		if launchDrive != "" {
			drive = launchDrive
		}

		tool, err := system.LookupTool(args[0])
		if err != nil {
			return err
		}

		var status int
		if launchWait && tool.Detached {
			exe, toolArgs := tool.Command(drive, launchAuto)
			status, err = system.Launch(cmd.Context(), exe, toolArgs...)
		} else {
			status, err = system.NewLauncher(drive, s.logger).Run(cmd.Context(), tool.Name, launchAuto)
		}
		if err != nil {
			return err
		}

		if tool.Detached && !launchWait {
			fmt.Fprintf(cmd.OutOrStdout(), "%s started\n", tool.Name)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s exited with status %d\n", tool.Name, status)
		if status != 0 {
			return fmt.Errorf("%s failed with exit status %d", tool.Name, status)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show CPU, memory and disk usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		d, err := system.Snapshot(cmd.Context(), system.SystemDrivePath(s.cfg.Launcher.Drive))
		if err != nil {
			return err
		}
		printDashboard(cmd.OutOrStdout(), d)
		return nil
	},
}

var startupCmd = &cobra.Command{
	Use:   "startup",
	Short: "List programs that run at logon",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := system.ListStartupEntries()
		if err != nil {
			return unsupported(err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCOPE\tNAME\tCOMMAND")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Scope, e.Name, e.Command)
		}
		return w.Flush()
	},
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List installed Windows services",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := system.ListServices()
		if err != nil {
			return unsupported(err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTATE\tSTART\tDISPLAY NAME")
		for _, svc := range services {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", svc.Name, svc.State, svc.StartMode, svc.DisplayName)
		}
		return w.Flush()
	},
}

func init() {
	launchCmd.Flags().StringVar(&launchDrive, "drive", "", "drive to operate on (default from config)")
	launchCmd.Flags().BoolVar(&launchAuto, "auto", false, "run cleanmgr with its saved settings (/sagerun:1)")
	launchCmd.Flags().BoolVar(&launchWait, "wait", false, "wait for windowed tools to exit")

	rootCmd.AddCommand(autostartCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startupCmd)
	rootCmd.AddCommand(servicesCmd)
}

func unsupported(err error) error {
	if errors.Is(err, system.ErrUnsupported) {
		return fmt.Errorf("%w: this command needs Windows", err)
	}
	return err
}

func printDashboard(w io.Writer, d *system.Dashboard) {
	fmt.Fprintf(w, "Host:    %s (%s %s)\n", d.Hostname, d.Platform, d.PlatformVersion)
	fmt.Fprintf(w, "Uptime:  %s\n", d.Uptime.Round(time.Minute))
	fmt.Fprintf(w, "CPU:     %.1f%%\n", d.CPUPercent)
	fmt.Fprintf(w, "Memory:  %s / %s (%.1f%%)\n",
		humanize.IBytes(d.MemoryUsed), humanize.IBytes(d.MemoryTotal), d.MemoryPercent)
	fmt.Fprintf(w, "Disk %s %s / %s (%.1f%%)\n",
		d.DiskPath, humanize.IBytes(d.DiskUsed), humanize.IBytes(d.DiskTotal), d.DiskPercent)
}
