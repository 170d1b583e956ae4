package history

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Source identifies what started a sweep
type Source string

const (
	SourceCLI    Source = "cli"
	SourceAPI    Source = "api"
	SourceDaemon Source = "daemon"
)

// SweepRun is one recorded sweep invocation
type SweepRun struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StartedAt  time.Time `gorm:"not null;index:idx_sweep_runs_started" json:"started_at"`
	DurationMS int64     `gorm:"not null" json:"duration_ms"`
	Source     Source    `gorm:"type:varchar(16);not null" json:"source"`
	DryRun     bool      `gorm:"not null;default:false" json:"dry_run"`
	Cancelled  bool      `gorm:"not null;default:false" json:"cancelled"`
	Attempted  int       `gorm:"not null" json:"attempted"`
	Deleted    int       `gorm:"not null" json:"deleted"`
	Failed     int       `gorm:"not null" json:"failed"`
	BytesFreed int64     `gorm:"not null" json:"bytes_freed"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`

	// Associations
	Targets []TargetRun `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"targets"`
}

// TableName specifies the table name for SweepRun
func (SweepRun) TableName() string {
	return "sweep_runs"
}

// BeforeCreate assigns a random ID to new runs
func (r *SweepRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TargetRun is the outcome of one target within a run
type TargetRun struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	RunID       uuid.UUID `gorm:"type:uuid;not null;index:idx_target_runs_run" json:"-"`
	Target      string    `gorm:"type:varchar(64);not null" json:"target"`
	Attempted   int       `gorm:"not null" json:"attempted"`
	Deleted     int       `gorm:"not null" json:"deleted"`
	Failed      int       `gorm:"not null" json:"failed"`
	BytesFreed  int64     `gorm:"not null" json:"bytes_freed"`
	DirsRemoved int       `gorm:"not null;default:0" json:"dirs_removed"`
	Cancelled   bool      `gorm:"not null;default:false" json:"cancelled"`
}

// TableName specifies the table name for TargetRun
func (TargetRun) TableName() string {
	return "target_runs"
}
