package daemon

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/robfig/cron/v3"
)

// SweepJob represents a scheduled sweep
type SweepJob struct {
	Name     string
	Schedule string
	Targets  []scanner.Target
	DryRun   bool
	NextRun  time.Time
	LastRun  time.Time
}

// newSweepJob builds a job from its schedule. Empty targets fall back to defaults.
func newSweepJob(schedule config.SweepSchedule, defaults []scanner.Target) (*SweepJob, error) {
	targets := defaults
	if len(schedule.Targets) > 0 {
		parsed, err := scanner.ParseTargets(schedule.Targets)
		if err != nil {
			return nil, err
		}
		targets = parsed
	}

	return &SweepJob{
		Name:     schedule.Name,
		Schedule: schedule.Schedule,
		Targets:  targets,
		DryRun:   schedule.DryRun,
	}, nil
}

// Scheduler manages scheduled sweep jobs
type Scheduler struct {
	daemon    *Daemon
	cron      *cron.Cron
	jobs      map[string]cron.EntryID
	byName    map[string]*SweepJob
	jobsMu    sync.RWMutex
	runMu     sync.Mutex
	running   bool
	schedules []config.SweepSchedule
}

// NewScheduler creates a new scheduler
func NewScheduler(daemon *Daemon, schedules []config.SweepSchedule) *Scheduler {
	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)

	c := cron.New(cron.WithParser(parser), cron.WithChain(
		cron.Recover(cron.DefaultLogger),
	))

	return &Scheduler{
		daemon:    daemon,
		cron:      c,
		jobs:      make(map[string]cron.EntryID),
		byName:    make(map[string]*SweepJob),
		schedules: schedules,
	}
}

// Start registers the configured schedules and starts the cron runner
func (s *Scheduler) Start() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	for _, schedule := range s.schedules {
		if err := s.addJobInternal(schedule); err != nil {
			return fmt.Errorf("failed to add schedule %s: %w", schedule.Name, err)
		}
	}

	s.cron.Start()
	s.running = true

	s.daemon.logger.Info("Scheduler started with %d jobs", len(s.jobs))
	return nil
}

// Stop stops the scheduler, waiting up to ten seconds for running jobs
func (s *Scheduler) Stop() {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		s.daemon.logger.Warn("Scheduler stop timed out")
	}

	s.running = false
	s.daemon.logger.Info("Scheduler stopped")
}

// addJobInternal adds a job (internal, no lock)
func (s *Scheduler) addJobInternal(schedule config.SweepSchedule) error {
	if _, exists := s.jobs[schedule.Name]; exists {
		return fmt.Errorf("job %s already exists", schedule.Name)
	}

	job, err := newSweepJob(schedule, s.daemon.config.EnabledTargets())
	if err != nil {
		return err
	}

	jobFunc := func() {
		s.daemon.logger.Info("Executing scheduled job: %s", job.Name)
		s.markRun(job)

		if _, err := s.daemon.RunSweepJob(s.daemon.shutdownCtx, job); err != nil {
			s.daemon.logger.Error("Job %s failed: %v", job.Name, err)
		}
	}

	id, err := s.cron.AddFunc(schedule.Schedule, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.jobs[schedule.Name] = id
	s.byName[schedule.Name] = job

	job.NextRun = s.cron.Entry(id).Next

	s.daemon.logger.Info("Added job: %s, next run: %v", schedule.Name, job.NextRun)
	return nil
}

// markRun stamps LastRun. Stop holds jobsMu while jobs drain, so this uses its own lock.
func (s *Scheduler) markRun(job *SweepJob) {
	s.runMu.Lock()
	job.LastRun = time.Now()
	s.runMu.Unlock()
}

// LastRun returns when a job last started, zero if never
func (s *Scheduler) LastRun(name string) time.Time {
	s.jobsMu.RLock()
	job, exists := s.byName[name]
	s.jobsMu.RUnlock()
	if !exists {
		return time.Time{}
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	return job.LastRun
}

// AddJob adds a new job to the scheduler
func (s *Scheduler) AddJob(schedule config.SweepSchedule) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	return s.addJobInternal(schedule)
}

// RemoveJob removes a job from the scheduler
func (s *Scheduler) RemoveJob(name string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	id, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(id)
	delete(s.jobs, name)
	delete(s.byName, name)

	s.daemon.logger.Info("Removed job: %s", name)
	return nil
}

// GetNextRun returns the next run time for a job
func (s *Scheduler) GetNextRun(name string) (time.Time, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	id, exists := s.jobs[name]
	if !exists {
		return time.Time{}, fmt.Errorf("job %s not found", name)
	}

	return s.cron.Entry(id).Next, nil
}

// ListJobs returns information about all jobs, sorted by name
func (s *Scheduler) ListJobs() []JobInfo {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobs))
	for name, id := range s.jobs {
		entry := s.cron.Entry(id)
		job := s.byName[name]

		targets := make([]string, len(job.Targets))
		for i, t := range job.Targets {
			targets[i] = t.String()
		}

		jobs = append(jobs, JobInfo{
			Name:     name,
			Schedule: job.Schedule,
			Targets:  targets,
			DryRun:   job.DryRun,
			NextRun:  entry.Next,
			PrevRun:  entry.Prev,
		})
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// TriggerJob runs a registered job immediately and waits for it
func (s *Scheduler) TriggerJob(ctx context.Context, name string) error {
	s.jobsMu.RLock()
	job, exists := s.byName[name]
	s.jobsMu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	s.markRun(job)

	s.daemon.logger.Info("Manually triggering job: %s", name)
	_, err := s.daemon.RunSweepJob(ctx, job)
	return err
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name     string
	Schedule string
	Targets  []string
	DryRun   bool
	NextRun  time.Time
	PrevRun  time.Time
}
