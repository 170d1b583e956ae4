package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/daemon"
	"github.com/fenilsonani/winsweep/internal/history"
	"github.com/fenilsonani/winsweep/internal/logging"
	"github.com/shirou/gopsutil/v4/process"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"

	configPath  string
	foreground  bool
	testConfig  bool
	showVersion bool
	runJob      string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&foreground, "foreground", false, "Also log to stderr")
	flag.BoolVar(&testConfig, "test-config", false, "Test configuration and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.StringVar(&runJob, "run", "", "Run the named schedule once and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("winsweep daemon v%s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Check if daemon is enabled
	if cfg.Daemon == nil || !cfg.Daemon.Enabled {
		fmt.Fprintf(os.Stderr, "Daemon not enabled in configuration\n")
		fmt.Fprintf(os.Stderr, "Add the following to your config file:\n")
		fmt.Fprintf(os.Stderr, "daemon:\n")
		fmt.Fprintf(os.Stderr, "  enabled: true\n")
		fmt.Fprintf(os.Stderr, "  schedules:\n")
		fmt.Fprintf(os.Stderr, "    - name: nightly\n")
		fmt.Fprintf(os.Stderr, "      schedule: \"0 2 * * *\"\n")
		fmt.Fprintf(os.Stderr, "      targets: [temp, thumbnails]\n")
		os.Exit(1)
	}

	if len(cfg.Daemon.Schedules) == 0 {
		fmt.Fprintf(os.Stderr, "No schedules configured. Add at least one schedule.\n")
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if testConfig {
		if err := checkSchedules(os.Stdout, cfg, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Configuration is invalid: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening history: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
		os.Exit(1)
	}

	if runJob != "" {
		if err := runOnce(d, cfg, runJob); err != nil {
			fmt.Fprintf(os.Stderr, "Error running %s: %v\n", runJob, err)
			os.Exit(1)
		}
		return
	}

	if running, pid := isRunning(d); running {
		fmt.Fprintf(os.Stderr, "Daemon is already running (pid %d)\n", pid)
		os.Exit(1)
	}

	fmt.Println("Starting winsweep daemon...")
	if err := d.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting daemon: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}

// newLogger writes to the configured file, falling back to the default log
// file; --foreground adds stderr
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	var console io.Writer
	if foreground {
		console = os.Stderr
	}

	opts := cfg.LoggerOptions(console)
	if opts.File == "" {
		file, err := config.DefaultLogFile()
		if err != nil {
			return nil, err
		}
		opts.File = file
	}
	if opts.Level == "" || strings.EqualFold(opts.Level, "warn") {
		opts.Level = "info"
	}
	return logging.New(opts)
}

// checkSchedules registers every schedule on a scratch daemon to validate the
// cron expressions and target names
func checkSchedules(w io.Writer, cfg *config.Config, logger *logging.Logger) error {
	d, err := daemon.New(cfg, nil, logger)
	if err != nil {
		return err
	}

	for _, sched := range cfg.Daemon.Schedules {
		if err := d.Scheduler().AddJob(sched); err != nil {
			return fmt.Errorf("schedule %s: %w", sched.Name, err)
		}
	}

	fmt.Fprintln(w, "Configuration is valid")
	fmt.Fprintf(w, "Daemon enabled: %v\n", cfg.Daemon.Enabled)
	fmt.Fprintf(w, "Schedules: %d\n", len(cfg.Daemon.Schedules))
	for _, job := range d.Scheduler().ListJobs() {
		mode := ""
		if job.DryRun {
			mode = " (dry run)"
		}
		fmt.Fprintf(w, "  - %s: %s -> %s%s\n", job.Name, job.Schedule, strings.Join(job.Targets, ", "), mode)
	}
	return nil
}

func runOnce(d *daemon.Daemon, cfg *config.Config, name string) error {
	for _, sched := range cfg.Daemon.Schedules {
		if err := d.Scheduler().AddJob(sched); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return d.Scheduler().TriggerJob(ctx, name)
}

func isRunning(d *daemon.Daemon) (bool, int) {
	pidFile, err := d.PidFilePath()
	if err != nil {
		return false, 0
	}

	pid, err := daemon.ReadPid(pidFile)
	if err != nil {
		return false, 0
	}

	exists, err := process.PidExists(int32(pid))
	return err == nil && exists, pid
}
