package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/history"
	"github.com/fenilsonani/winsweep/internal/logging"
	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	verbose    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "winsweep",
	Short: "Windows temporary-file sweeper",
	Long: `winsweep reclaims disk space on Windows by deleting temporary files,
prefetch data, memory dumps, thumbnail caches and browser caches.

It also launches the built-in maintenance tools (defrag, chkdsk, cleanmgr)
and manages its own autostart entry.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
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

// session is the loaded configuration and logger shared by a command
type session struct {
	cfg    *config.Config
	logger *logging.Logger
}

func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	opts := cfg.LoggerOptions(os.Stderr)
	if verbose {
		opts.Level = "debug"
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	return &session{cfg: cfg, logger: logger}, nil
}

func (s *session) Close() {
	_ = s.logger.Close()
}

// openHistory returns nil when history is disabled
func (s *session) openHistory() (*history.Store, error) {
	if !s.cfg.History.Enabled {
		return nil, nil
	}
	return history.Open(s.cfg.History, s.logger)
}

// record stores a CLI run. History errors are only logged.
func (s *session) record(ctx context.Context, outcomes []*cleaner.Outcome) {
	store, err := s.openHistory()
	if err != nil {
		s.logger.Warn("history unavailable: %v", err)
		return
	}
	if store == nil {
		return
	}
	defer store.Close()

	run, err := store.Record(ctx, history.SourceCLI, outcomes)
	if err != nil {
		s.logger.Warn("%v", err)
		return
	}
	s.logger.Debug("recorded run %s", run.ID)
}
