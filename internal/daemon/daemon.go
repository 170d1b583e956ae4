// Package daemon runs scheduled sweeps in the background.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/history"
	"github.com/fenilsonani/winsweep/internal/logging"
)

// ErrBusy is returned when a job fires while another sweep is still running
var ErrBusy = errors.New("another sweep is running")

// Daemon represents the sweep daemon
type Daemon struct {
	config      *config.Config
	scheduler   *Scheduler
	store       *history.Store
	logger      *logging.Logger
	running     bool
	shutdownCtx context.Context
	cancelFunc  context.CancelFunc
	mu          sync.RWMutex
	sweepMu     sync.Mutex
}

// New creates a new daemon instance. store may be nil when history is disabled.
func New(cfg *config.Config, store *history.Store, logger *logging.Logger) (*Daemon, error) {
	if cfg.Daemon == nil || !cfg.Daemon.Enabled {
		return nil, fmt.Errorf("daemon not enabled in configuration")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	daemon := &Daemon{
		config:      cfg,
		store:       store,
		logger:      logger,
		shutdownCtx: ctx,
		cancelFunc:  cancel,
	}
	daemon.scheduler = NewScheduler(daemon, cfg.Daemon.Schedules)

	return daemon, nil
}

// Scheduler returns the job scheduler
func (d *Daemon) Scheduler() *Scheduler {
	return d.scheduler
}

// Start runs the daemon until Stop is called or SIGINT/SIGTERM arrives
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	d.logger.Info("Starting sweep daemon")

	if err := d.acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer d.releaseLock()

	if err := d.writePidFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer d.removePidFile()

	stopSignals := d.setupSignalHandlers()
	defer stopSignals()

	if err := d.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer d.scheduler.Stop()

	d.logger.Info("Daemon started successfully")

	<-d.shutdownCtx.Done()

	d.logger.Info("Daemon shutting down")
	return nil
}

// Stop stops the daemon
func (d *Daemon) Stop() {
	if d.cancelFunc != nil {
		d.cancelFunc()
	}
}

// IsRunning returns whether the daemon is running
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// RunSweepJob sweeps the job's targets, records the run and prunes old history.
// Jobs never overlap; a job that fires mid-sweep returns ErrBusy.
func (d *Daemon) RunSweepJob(ctx context.Context, job *SweepJob) ([]*cleaner.Outcome, error) {
	if !d.sweepMu.TryLock() {
		d.logger.Warn("Skipping job %s: %v", job.Name, ErrBusy)
		return nil, ErrBusy
	}
	defer d.sweepMu.Unlock()

	d.logger.Info("Running sweep job: %s", job.Name)
	startTime := time.Now()

	jobConfig := d.createJobConfig(job)

	sweeper := cleaner.New(jobConfig)
	sweeper.SetLogger(d.logger)

	outcomes, err := sweeper.Sweep(ctx, job.Targets, jobConfig.HostEnvironment())
	if err != nil {
		d.logger.Error("Sweep failed for job %s: %v", job.Name, err)
		return nil, fmt.Errorf("sweep failed: %w", err)
	}

	var deleted, failed int
	var freed int64
	for _, o := range outcomes {
		deleted += o.Deleted
		failed += len(o.Failed)
		freed += o.BytesFreed
	}
	d.logger.Info("Sweep job %s completed in %v: deleted %d files, freed %d bytes, %d failures",
		job.Name, time.Since(startTime), deleted, freed, failed)

	if d.store != nil {
		d.recordHistory(ctx, job, outcomes)
	}

	return outcomes, nil
}

// recordHistory stores the run and applies retention; failures are logged only
func (d *Daemon) recordHistory(ctx context.Context, job *SweepJob, outcomes []*cleaner.Outcome) {
	if _, err := d.store.Record(ctx, history.SourceDaemon, outcomes); err != nil {
		d.logger.Error("Failed to record job %s: %v", job.Name, err)
	}

	days := d.config.History.RetentionDays
	if days <= 0 {
		return
	}
	pruned, err := d.store.Prune(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		d.logger.Error("Failed to prune history: %v", err)
		return
	}
	if pruned > 0 {
		d.logger.Info("Pruned %d runs older than %d days", pruned, days)
	}
}

// createJobConfig creates a config for a specific job
func (d *Daemon) createJobConfig(job *SweepJob) *config.Config {
	cfg := *d.config

	if job.DryRun {
		cfg.DryRun = true
	}

	return &cfg
}

// setupSignalHandlers stops the daemon on SIGINT or SIGTERM
func (d *Daemon) setupSignalHandlers() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			d.logger.Info("Received shutdown signal: %v", sig)
			d.Stop()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// PidFilePath returns the configured PID file, or one next to the config file
func (d *Daemon) PidFilePath() (string, error) {
	if d.config.Daemon.PidFile != "" {
		return d.config.Daemon.PidFile, nil
	}
	dir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "winsweep-daemon.pid"), nil
}

// acquireLock creates the lock file exclusively
func (d *Daemon) acquireLock() error {
	pidFile, err := d.PidFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(pidFile+".lock", os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("daemon already running (lock file exists)")
		}
		return err
	}

	_, err = fmt.Fprintf(file, "%d\n", os.Getpid())
	file.Close()
	return err
}

// releaseLock releases the lock file
func (d *Daemon) releaseLock() error {
	pidFile, err := d.PidFilePath()
	if err != nil {
		return err
	}
	return os.Remove(pidFile + ".lock")
}

// writePidFile writes the PID file
func (d *Daemon) writePidFile() error {
	pidFile, err := d.PidFilePath()
	if err != nil {
		return err
	}
	return os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

// removePidFile removes the PID file
func (d *Daemon) removePidFile() error {
	pidFile, err := d.PidFilePath()
	if err != nil {
		return err
	}
	return os.Remove(pidFile)
}

// ReadPid returns the PID recorded in a PID file
func ReadPid(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed PID file %s: %w", pidFile, err)
	}
	return pid, nil
}
