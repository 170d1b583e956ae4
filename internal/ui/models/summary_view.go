package models

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/reporter"
	"github.com/fenilsonani/winsweep/internal/ui/styles"
	uiutils "github.com/fenilsonani/winsweep/internal/ui/utils"
)

// maxListedFailures caps the failure list so the summary fits a screen
const maxListedFailures = 15

// SummaryViewModel handles the summary/results view
type SummaryViewModel struct {
	outcomes     []*cleaner.Outcome
	totals       reporter.Totals
	showFailures bool
	width        int
}

// NewSummaryViewModel creates a new summary view model
func NewSummaryViewModel(outcomes []*cleaner.Outcome, width int) *SummaryViewModel {
	if width == 0 {
		width = 80
	}
	return &SummaryViewModel{
		outcomes: outcomes,
		totals:   reporter.Sum(outcomes),
		width:    width,
	}
}

// Init initializes the summary view
func (m *SummaryViewModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *SummaryViewModel) Update(msg tea.Msg) (*SummaryViewModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "f":
			m.showFailures = !m.showFailures
		case "q", "enter":
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the summary view
func (m *SummaryViewModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Sweep Summary"))
	b.WriteString("\n\n")

	t := m.totals
	b.WriteString(styles.SuccessStyle.Render(fmt.Sprintf("Deleted %d of %d files", t.Deleted, t.Attempted)))
	b.WriteString("\n")
	b.WriteString(styles.BoldStyle.Render("Space freed: " + humanize.IBytes(uint64(t.BytesFreed))))
	b.WriteString("\n")
	if t.DirsRemoved > 0 {
		b.WriteString(fmt.Sprintf("Empty directories removed: %d\n", t.DirsRemoved))
	}
	b.WriteString("\n")

	var failures []cleaner.PathFailure
	cancelled, dryRun := false, false
	for _, o := range m.outcomes {
		status := styles.SuccessStyle.Render("ok")
		switch {
		case o.Cancelled:
			status = styles.WarningStyle.Render("stopped")
		case len(o.Failed) > 0:
			status = styles.ErrorStyle.Render(fmt.Sprintf("%d failed", len(o.Failed)))
		}
		b.WriteString(fmt.Sprintf("  %-24s %d/%d  %s  %s\n",
			styles.TargetStyle.Render(o.Target.Description()),
			o.Deleted, o.Attempted,
			styles.FileSizeStyle.Render(humanize.IBytes(uint64(o.BytesFreed))),
			status))

		failures = append(failures, o.Failed...)
		cancelled = cancelled || o.Cancelled
		dryRun = dryRun || o.DryRun
	}

	if len(failures) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render(fmt.Sprintf("%d files could not be deleted", len(failures))))
		b.WriteString("\n")

		if m.showFailures {
			for i, f := range failures {
				if i == maxListedFailures {
					b.WriteString(styles.DimStyle.Render(fmt.Sprintf("  ... and %d more", len(failures)-i)))
					b.WriteString("\n")
					break
				}
				b.WriteString(fmt.Sprintf("  %s %s\n",
					styles.FilePathStyle.Render(uiutils.TruncatePath(f.Path, m.width-30)),
					styles.DimStyle.Render("("+f.Reason.String()+")")))
			}
		}
	}

	if cancelled {
		b.WriteString("\n")
		b.WriteString(styles.WarningStyle.Render("The sweep was stopped before it finished."))
		b.WriteString("\n")
	}
	if dryRun {
		b.WriteString("\n")
		b.WriteString(styles.InfoStyle.Render("Note: This was a dry run. No files were actually deleted."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := "Press q or enter to exit"
	if len(failures) > 0 {
		help = "f: toggle failures  " + help
	}
	b.WriteString(styles.HelpStyle.Render(help))

	return b.String()
}
