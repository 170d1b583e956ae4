// Package history persists summaries of completed sweeps.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/logging"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrNotFound is returned by Get for unknown run IDs
var ErrNotFound = errors.New("sweep run not found")

// Store records sweep runs
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and runs migrations
func Open(cfg config.HistoryConfig, logger *logging.Logger) (*Store, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			var err error
			if dsn, err = config.DefaultHistoryDSN(); err != nil {
				return nil, err
			}
		}
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create history directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown history driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormAdapter(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	return NewStore(db)
}

// NewStore wraps an open connection and migrates the schema
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&SweepRun{}, &TargetRun{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores the outcomes of one sweep invocation
func (s *Store) Record(ctx context.Context, source Source, outcomes []*cleaner.Outcome) (*SweepRun, error) {
	run := &SweepRun{
		Source:  source,
		Targets: make([]TargetRun, 0, len(outcomes)),
	}

	var longest time.Duration
	for _, o := range outcomes {
		run.Targets = append(run.Targets, TargetRun{
			Target:      o.Target.String(),
			Attempted:   o.Attempted,
			Deleted:     o.Deleted,
			Failed:      len(o.Failed),
			BytesFreed:  o.BytesFreed,
			DirsRemoved: o.DirsRemoved,
			Cancelled:   o.Cancelled,
		})
		run.Attempted += o.Attempted
		run.Deleted += o.Deleted
		run.Failed += len(o.Failed)
		run.BytesFreed += o.BytesFreed
		run.DryRun = run.DryRun || o.DryRun
		run.Cancelled = run.Cancelled || o.Cancelled
		if o.Duration > longest {
			longest = o.Duration
		}
	}

	// Targets run concurrently, so the slowest one is the run's duration.
	run.DurationMS = longest.Milliseconds()
	run.StartedAt = time.Now().Add(-longest)

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to record sweep run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first
func (s *Store) List(ctx context.Context, limit int) ([]SweepRun, error) {
	var runs []SweepRun

	q := s.db.WithContext(ctx).Preload("Targets").Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list sweep runs: %w", err)
	}
	return runs, nil
}

// Get returns a single run with its targets
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*SweepRun, error) {
	var run SweepRun

	err := s.db.WithContext(ctx).Preload("Targets").First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sweep run: %w", err)
	}
	return &run, nil
}

// Prune deletes runs started before now minus olderThan and returns how many were removed
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&SweepRun{}).Select("id").Where("started_at < ?", cutoff)
		if err := tx.Where("run_id IN (?)", stale).Delete(&TargetRun{}).Error; err != nil {
			return err
		}
		res := tx.Where("started_at < ?", cutoff).Delete(&SweepRun{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune sweep runs: %w", err)
	}
	return removed, nil
}

// HealthCheck verifies database connectivity
func (s *Store) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
