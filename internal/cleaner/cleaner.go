package cleaner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/IGLOU-EU/go-wildcard"
	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/logging"
	"github.com/fenilsonani/winsweep/internal/platform"
	"github.com/fenilsonani/winsweep/internal/progress"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/fenilsonani/winsweep/internal/security"
)

// Remover deletes a single file
type Remover interface {
	Remove(path string) error
}

type osRemover struct{}

func (osRemover) Remove(path string) error {
	return os.Remove(path)
}

// Outcome is the result of sweeping one target.
// Attempted always equals Deleted + len(Failed).
type Outcome struct {
	Target      scanner.Target `json:"target" yaml:"target"`
	Attempted   int            `json:"attempted" yaml:"attempted"`
	Deleted     int            `json:"deleted" yaml:"deleted"`
	Failed      []PathFailure  `json:"failed" yaml:"failed"`
	BytesFreed  int64          `json:"bytes_freed" yaml:"bytes_freed"`
	DirsRemoved int            `json:"dirs_removed" yaml:"dirs_removed"`
	Cancelled   bool           `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	DryRun      bool           `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Duration    time.Duration  `json:"duration" yaml:"duration"`
}

// Succeeded reports whether every attempted path was deleted
func (o *Outcome) Succeeded() bool {
	return len(o.Failed) == 0 && !o.Cancelled
}

// Sweeper deletes the files behind cleanup targets
type Sweeper struct {
	config           *config.Config
	validator        *security.PathValidator
	remover          Remover
	manifest         *DeletionManifest
	progressReporter *progress.ProgressReporter
	logger           *logging.Logger
}

// New creates a new Sweeper
func New(cfg *config.Config) *Sweeper {
	validator := security.NewPathValidator()
	for _, p := range cfg.ProtectedPaths {
		validator.AddProtectedPath(p)
	}

	return &Sweeper{
		config:           cfg,
		validator:        validator,
		remover:          osRemover{},
		manifest:         NewDeletionManifest(),
		progressReporter: progress.NewProgressReporter(),
		logger:           logging.Nop(),
	}
}

// SetRemover replaces the file remover
func (s *Sweeper) SetRemover(r Remover) {
	s.remover = r
}

// SetProgressReporter sets a custom progress reporter
func (s *Sweeper) SetProgressReporter(pr *progress.ProgressReporter) {
	s.progressReporter = pr
}

// GetProgressReporter returns the sweeper's progress reporter
func (s *Sweeper) GetProgressReporter() *progress.ProgressReporter {
	return s.progressReporter
}

// SetLogger sets the logger
func (s *Sweeper) SetLogger(l *logging.Logger) {
	s.logger = l
}

// GetManifest returns the record of deleted files
func (s *Sweeper) GetManifest() *DeletionManifest {
	return s.manifest
}

// Sweep deletes every regular file behind each target and returns one
// Outcome per distinct target, in request order. Per-path problems are
// recorded in the outcomes; the only error is an invalid environment,
// reported before anything is touched. When ctx is cancelled the sweep
// stops between files and the partial outcomes are returned.
func (s *Sweeper) Sweep(ctx context.Context, targets []scanner.Target, env *platform.HostEnvironment) ([]*Outcome, error) {
	if len(targets) == 0 {
		return []*Outcome{}, nil
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("sweep not started: %w", err)
	}

	unique := make([]scanner.Target, 0, len(targets))
	seen := make(map[scanner.Target]bool, len(targets))
	for _, t := range targets {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}

	outcomes := make([]*Outcome, len(unique))
	var wg sync.WaitGroup
	for i, t := range unique {
		wg.Add(1)
		go func(i int, t scanner.Target) {
			defer wg.Done()
			outcomes[i] = s.sweepTarget(ctx, t, env)
		}(i, t)
	}
	wg.Wait()

	return outcomes, nil
}

// sweepTarget resolves one target and feeds its files to a bounded pool of delete workers
func (s *Sweeper) sweepTarget(ctx context.Context, t scanner.Target, env *platform.HostEnvironment) *Outcome {
	start := time.Now()
	acc := &accumulator{
		outcome:  &Outcome{Target: t, Failed: []PathFailure{}, DryRun: s.config.DryRun},
		reporter: s.progressReporter,
		start:    start,
	}
	acc.report(progress.PhaseResolving, "")

	roots, err := scanner.Resolve(t, env)
	if err != nil {
		acc.fail(&PathFailure{Path: t.String(), Reason: ReasonInvalidPath, Err: err})
		return acc.finish(progress.PhaseComplete, start)
	}
	s.logger.Debug("%s resolved to %d roots", t, len(roots))
	hostRoots := env.Roots()

	workers := s.config.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan scanner.Entry)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				if ctx.Err() != nil {
					continue
				}
				s.deleteFile(entry, roots, hostRoots, acc)
			}
		}()
	}

	send := func(e scanner.Entry) error {
		if s.excluded(e.Path) {
			s.logger.Debug("excluded %s", e.Path)
			return nil
		}
		select {
		case jobs <- e:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var subdirs []string
	for _, root := range roots {
		if ctx.Err() != nil {
			break
		}

		info, err := os.Lstat(root)
		if err != nil {
			if !os.IsNotExist(err) {
				acc.fail(&PathFailure{Path: root, Reason: ReasonRootUnreadable, Err: err})
			}
			continue
		}

		if info.Mode().IsRegular() {
			if err := send(scanner.Entry{Path: root, Size: info.Size(), Root: root}); err != nil {
				break
			}
			continue
		}
		if !info.IsDir() {
			continue
		}

		dirs, err := scanner.Walk(ctx, root, send, func(we scanner.WalkError) {
			reason := ReasonDirectoryUnreadable
			if we.IsRoot {
				reason = ReasonRootUnreadable
			}
			s.logger.Warn("%s: cannot list %s: %v", t, we.Path, we.Err)
			acc.fail(&PathFailure{Path: we.Path, Reason: reason, Err: we.Err})
		})
		subdirs = append(subdirs, dirs...)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			acc.fail(&PathFailure{Path: root, Reason: ReasonRootUnreadable, Err: err})
		}
	}

	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		acc.outcome.Cancelled = true
		s.logger.Info("%s: sweep cancelled after %d files", t, acc.outcome.Attempted)
		return acc.finish(progress.PhaseCancelled, start)
	}

	if s.config.PruneEmptyDirs && !s.config.DryRun {
		acc.outcome.DirsRemoved = s.pruneEmptyDirs(subdirs, roots)
	}

	s.logger.Info("%s: %d attempted, %d deleted, %d failed", t, acc.outcome.Attempted, acc.outcome.Deleted, len(acc.outcome.Failed))
	return acc.finish(progress.PhaseComplete, start)
}

// deleteFile validates and removes one enumerated file
func (s *Sweeper) deleteFile(entry scanner.Entry, roots, hostRoots []string, acc *accumulator) {
	if err := s.validator.ValidateContained(entry.Path, roots, hostRoots); err != nil {
		acc.fail(CategorizeError(entry.Path, err))
		return
	}

	// Lstat again: the entry may have been replaced since enumeration.
	info, err := os.Lstat(entry.Path)
	if err != nil {
		acc.fail(CategorizeError(entry.Path, err))
		return
	}
	if !info.Mode().IsRegular() {
		acc.fail(&PathFailure{
			Path:   entry.Path,
			Reason: ReasonInvalidPath,
			Err:    fmt.Errorf("no longer a regular file"),
		})
		return
	}

	if !s.config.DryRun {
		if err := s.remover.Remove(entry.Path); err != nil {
			acc.fail(CategorizeError(entry.Path, err))
			return
		}
		s.manifest.Add(entry.Path, info.Size(), acc.outcome.Target.String())
	}

	acc.deleted(entry.Path, info.Size())
}

func (s *Sweeper) excluded(path string) bool {
	name := filepath.Base(path)
	for _, pattern := range s.config.ExcludePatterns {
		if wildcard.Match(pattern, name) || wildcard.Match(pattern, path) {
			return true
		}
	}
	return false
}

// pruneEmptyDirs removes empty subdirectories deepest first; roots are kept
func (s *Sweeper) pruneEmptyDirs(dirs []string, roots []string) int {
	removed := 0
	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		if _, ok := security.EnclosingRoot(roots, dir); !ok {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			s.logger.Debug("could not remove empty directory %s: %v", dir, err)
			continue
		}
		removed++
	}
	return removed
}

// accumulator is the single shared outcome of a target's workers
type accumulator struct {
	mu       sync.Mutex
	outcome  *Outcome
	reporter *progress.ProgressReporter
	start    time.Time
}

func (a *accumulator) deleted(path string, size int64) {
	a.mu.Lock()
	a.outcome.Attempted++
	a.outcome.Deleted++
	a.outcome.BytesFreed += size
	snapshot := a.snapshotLocked(progress.PhaseSweeping, path)
	a.mu.Unlock()

	a.reporter.Update(snapshot)
}

func (a *accumulator) fail(f *PathFailure) {
	a.mu.Lock()
	a.outcome.Attempted++
	a.outcome.Failed = append(a.outcome.Failed, *f)
	snapshot := a.snapshotLocked(progress.PhaseSweeping, f.Path)
	a.mu.Unlock()

	a.reporter.Update(snapshot)
}

func (a *accumulator) report(phase progress.Phase, current string) {
	a.mu.Lock()
	snapshot := a.snapshotLocked(phase, current)
	a.mu.Unlock()

	a.reporter.Update(snapshot)
}

func (a *accumulator) finish(phase progress.Phase, start time.Time) *Outcome {
	a.mu.Lock()
	a.outcome.Duration = time.Since(start)
	a.mu.Unlock()

	a.report(phase, "")
	return a.outcome
}

func (a *accumulator) snapshotLocked(phase progress.Phase, current string) progress.SweepProgress {
	return progress.SweepProgress{
		Phase:       phase,
		Target:      a.outcome.Target.String(),
		CurrentFile: current,
		Attempted:   a.outcome.Attempted,
		Deleted:     a.outcome.Deleted,
		Failed:      len(a.outcome.Failed),
		BytesFreed:  a.outcome.BytesFreed,
		StartTime:   a.start,
	}
}

// DeletionManifest records every file removed by a Sweeper
type DeletionManifest struct {
	mu        sync.Mutex
	Files     []DeletedFileInfo
	Timestamp time.Time
	TotalSize int64
}

// DeletedFileInfo represents information about a deleted file
type DeletedFileInfo struct {
	Path      string
	Size      int64
	Target    string
	DeletedAt time.Time
}

// NewDeletionManifest creates a new DeletionManifest
func NewDeletionManifest() *DeletionManifest {
	return &DeletionManifest{
		Files:     []DeletedFileInfo{},
		Timestamp: time.Now(),
	}
}

// Add adds a file to the manifest
func (m *DeletionManifest) Add(path string, size int64, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Files = append(m.Files, DeletedFileInfo{
		Path:      path,
		Size:      size,
		Target:    target,
		DeletedAt: time.Now(),
	})
	m.TotalSize += size
}

// Len returns the number of recorded files
func (m *DeletionManifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Files)
}

// Save saves the manifest to a file
func (m *DeletionManifest) Save(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "Deletion Manifest\n")
	fmt.Fprintf(file, "Created: %s\n", m.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(file, "Total Size: %d bytes\n", m.TotalSize)
	fmt.Fprintf(file, "Total Files: %d\n\n", len(m.Files))

	for _, f := range m.Files {
		fmt.Fprintf(file, "%s | %d bytes | %s | %s\n",
			f.Path, f.Size, f.Target, f.DeletedAt.Format(time.RFC3339))
	}

	return nil
}
