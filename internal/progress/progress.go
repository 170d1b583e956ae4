package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Phase represents the current phase of operation
type Phase string

const (
	PhaseResolving Phase = "resolving"
	PhaseSweeping  Phase = "sweeping"
	PhaseComplete  Phase = "complete"
	PhaseCancelled Phase = "cancelled"
)

// SweepProgress is a snapshot of one target's sweep
type SweepProgress struct {
	Phase       Phase
	Target      string
	CurrentFile string
	Attempted   int
	Deleted     int
	Failed      int
	BytesFreed  int64
	StartTime   time.Time
}

// ProgressReporter provides thread-safe progress reporting
type ProgressReporter struct {
	latest    map[string]SweepProgress
	mu        sync.RWMutex
	listeners []chan SweepProgress
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		latest: make(map[string]SweepProgress),
	}
}

// Subscribe returns a channel that receives progress updates
func (pr *ProgressReporter) Subscribe() <-chan SweepProgress {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	ch := make(chan SweepProgress, 64)
	pr.listeners = append(pr.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (pr *ProgressReporter) Unsubscribe(ch <-chan SweepProgress) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	for i, listener := range pr.listeners {
		if listener == ch {
			close(listener)
			pr.listeners = append(pr.listeners[:i], pr.listeners[i+1:]...)
			return
		}
	}
}

// Update records a snapshot and notifies listeners without blocking
func (pr *ProgressReporter) Update(update SweepProgress) {
	if pr == nil {
		return
	}

	pr.mu.Lock()
	pr.latest[update.Target] = update
	listeners := make([]chan SweepProgress, len(pr.listeners))
	copy(listeners, pr.listeners)
	pr.mu.Unlock()

	for _, listener := range listeners {
		select {
		case listener <- update:
		default:
			// Skip if channel is full
		}
	}
}

// Latest returns the most recent snapshot for a target
func (pr *ProgressReporter) Latest(target string) (SweepProgress, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	p, ok := pr.latest[target]
	return p, ok
}

// Totals sums the latest snapshots of every target
func (pr *ProgressReporter) Totals() SweepProgress {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	var total SweepProgress
	for _, p := range pr.latest {
		total.Attempted += p.Attempted
		total.Deleted += p.Deleted
		total.Failed += p.Failed
		total.BytesFreed += p.BytesFreed
		if total.StartTime.IsZero() || (!p.StartTime.IsZero() && p.StartTime.Before(total.StartTime)) {
			total.StartTime = p.StartTime
		}
	}
	return total
}

// FormatSweepProgress returns a human-readable progress line
func FormatSweepProgress(p *SweepProgress) string {
	if p == nil {
		return "Preparing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseResolving:
		return fmt.Sprintf("Resolving %s...", p.Target)
	case PhaseSweeping:
		return fmt.Sprintf("Sweeping %s... %d deleted, %d failed (%s freed) [%s]",
			p.Target,
			p.Deleted,
			p.Failed,
			humanize.Bytes(uint64(p.BytesFreed)),
			FormatDuration(elapsed))
	case PhaseComplete:
		return fmt.Sprintf("%s: %d/%d deleted (%s) in %s",
			p.Target,
			p.Deleted,
			p.Attempted,
			humanize.Bytes(uint64(p.BytesFreed)),
			FormatDuration(elapsed))
	case PhaseCancelled:
		return fmt.Sprintf("%s: cancelled after %d/%d", p.Target, p.Deleted, p.Attempted)
	default:
		return "Preparing..."
	}
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
