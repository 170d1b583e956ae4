package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/logging"
	"github.com/fenilsonani/winsweep/internal/platform"
	sweepprogress "github.com/fenilsonani/winsweep/internal/progress"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/fenilsonani/winsweep/internal/ui/styles"
	uiutils "github.com/fenilsonani/winsweep/internal/ui/utils"
)

// SweepViewModel runs the sweep and shows its progress
type SweepViewModel struct {
	ctx       context.Context
	config    *config.Config
	env       *platform.HostEnvironment
	logger    *logging.Logger
	items     []TargetItem
	expected  int
	spinner   spinner.Model
	bar       progress.Model
	reporter  *sweepprogress.ProgressReporter
	updates   <-chan sweepprogress.SweepProgress
	latest    map[string]sweepprogress.SweepProgress
	current   string
	startTime time.Time
}

// NewSweepViewModel creates a new sweep view model. The surveyed file
// counts of items drive the progress bar.
func NewSweepViewModel(ctx context.Context, cfg *config.Config, env *platform.HostEnvironment, logger *logging.Logger, items []TargetItem, width int) *SweepViewModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	barWidth := 60
	if width > 0 && width-4 < barWidth {
		barWidth = width - 4
	}
	p := progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth))

	expected := 0
	for _, it := range items {
		expected += it.Files
	}

	reporter := sweepprogress.NewProgressReporter()

	return &SweepViewModel{
		ctx:       ctx,
		config:    cfg,
		env:       env,
		logger:    logger,
		items:     items,
		expected:  expected,
		spinner:   s,
		bar:       p,
		reporter:  reporter,
		updates:   reporter.Subscribe(),
		latest:    make(map[string]sweepprogress.SweepProgress),
		startTime: time.Now(),
	}
}

// Init initializes the sweep view
func (m *SweepViewModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForProgress(m.updates),
		m.performSweep,
	)
}

// Update handles messages
func (m *SweepViewModel) Update(msg tea.Msg) (*SweepViewModel, tea.Cmd) {
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

// Percent returns the share of surveyed files handled so far
func (m *SweepViewModel) Percent() float64 {
	if m.expected == 0 {
		return 0
	}

	done := 0
	for _, p := range m.latest {
		done += p.Attempted
	}

	pct := float64(done) / float64(m.expected)
	if pct > 1 {
		pct = 1
	}
	return pct
}

// View renders the sweep view
func (m *SweepViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Sweeping"))
	b.WriteString("\n\n")

	b.WriteString(m.spinner.View())
	b.WriteString(" Deleting files... ")
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("(%s)", time.Since(m.startTime).Round(time.Second))))
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("\n\n")

	var deleted, failed int
	var freed int64
	for _, p := range m.latest {
		deleted += p.Deleted
		failed += p.Failed
		freed += p.BytesFreed
	}
	b.WriteString(fmt.Sprintf("Deleted: %d  Failed: %d  Freed: %s\n", deleted, failed, humanize.IBytes(uint64(freed))))

	if m.current != "" {
		b.WriteString(styles.DimStyle.Render("Current: "))
		b.WriteString(styles.FilePathStyle.Render(uiutils.TruncatePath(m.current, 60)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("Press ctrl+c to stop; files already deleted stay deleted"))

	return b.String()
}

// performSweep runs the real sweep over the selected targets
func (m *SweepViewModel) performSweep() tea.Msg {
	defer m.reporter.Unsubscribe(m.updates)

	targets := make([]scanner.Target, len(m.items))
	for i, it := range m.items {
		targets[i] = it.Target
	}

	sweeper := cleaner.New(m.config)
	sweeper.SetLogger(m.logger)
	sweeper.SetProgressReporter(m.reporter)

	outcomes, err := sweeper.Sweep(m.ctx, targets, m.env)
	return SweepCompleteMsg{Outcomes: outcomes, Err: err}
}
