package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/platform"
	"github.com/fenilsonani/winsweep/internal/progress"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/fenilsonani/winsweep/internal/ui/styles"
	uiutils "github.com/fenilsonani/winsweep/internal/ui/utils"
)

// ScanViewModel surveys targets with a dry-run sweep
type ScanViewModel struct {
	ctx       context.Context
	config    *config.Config
	env       *platform.HostEnvironment
	targets   []scanner.Target
	spinner   spinner.Model
	reporter  *progress.ProgressReporter
	updates   <-chan progress.SweepProgress
	scanning  bool
	startTime time.Time
	current   string
	latest    map[string]progress.SweepProgress
}

// NewScanViewModel creates a new scan view model
func NewScanViewModel(ctx context.Context, cfg *config.Config, env *platform.HostEnvironment, targets []scanner.Target) *ScanViewModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	reporter := progress.NewProgressReporter()

	return &ScanViewModel{
		ctx:       ctx,
		config:    cfg,
		env:       env,
		targets:   targets,
		spinner:   s,
		reporter:  reporter,
		updates:   reporter.Subscribe(),
		scanning:  true,
		startTime: time.Now(),
		latest:    make(map[string]progress.SweepProgress),
	}
}

// Init initializes the scan view
func (m *ScanViewModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForProgress(m.updates),
		m.performScan,
	)
}

// Update handles messages
func (m *ScanViewModel) Update(msg tea.Msg) (*ScanViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SweepProgressMsg:
		if msg.source != m.updates {
			return m, nil
		}
		m.latest[msg.Progress.Target] = msg.Progress
		m.current = msg.Progress.CurrentFile
		return m, waitForProgress(m.updates)
	}

	return m, nil
}

// View renders the scan view
func (m *ScanViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Surveying Targets"))
	b.WriteString("\n\n")

	b.WriteString(m.spinner.View())
	b.WriteString(" Measuring... ")
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("(%s)", time.Since(m.startTime).Round(time.Second))))
	b.WriteString("\n\n")

	if m.current != "" {
		b.WriteString(styles.DimStyle.Render("Current: "))
		b.WriteString(styles.FilePathStyle.Render(uiutils.TruncatePath(m.current, 60)))
		b.WriteString("\n\n")
	}

	var files int
	var size int64
	for _, t := range m.targets {
		p, ok := m.latest[t.String()]
		if !ok || p.Attempted == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s: %s files, %s\n",
			styles.TargetStyle.Render(t.String()),
			styles.BoldStyle.Render(fmt.Sprintf("%d", p.Attempted)),
			styles.FileSizeStyle.Render(humanize.IBytes(uint64(p.BytesFreed)))))
		files += p.Attempted
		size += p.BytesFreed
	}

	b.WriteString("\n")
	b.WriteString(styles.BoldStyle.Render(fmt.Sprintf("Total: %d files, %s", files, humanize.IBytes(uint64(size)))))
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render("Press ctrl+c to cancel"))

	return b.String()
}

// performScan runs the survey and resolves each target's roots
func (m *ScanViewModel) performScan() tea.Msg {
	defer m.reporter.Unsubscribe(m.updates)

	cfg := *m.config
	cfg.DryRun = true

	sweeper := cleaner.New(&cfg)
	sweeper.SetProgressReporter(m.reporter)

	outcomes, err := sweeper.Sweep(m.ctx, m.targets, m.env)
	if err != nil {
		return ScanCompleteMsg{Err: err}
	}

	roots := make(map[scanner.Target][]string, len(m.targets))
	for _, t := range m.targets {
		r, err := scanner.Resolve(t, m.env)
		if err != nil {
			return ScanCompleteMsg{Err: err}
		}
		roots[t] = r
	}

	return ScanCompleteMsg{Outcomes: outcomes, Roots: roots}
}
