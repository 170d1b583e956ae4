package models

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/logging"
	"github.com/fenilsonani/winsweep/internal/platform"
	"github.com/fenilsonani/winsweep/internal/progress"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/fenilsonani/winsweep/internal/ui/styles"
)

// ViewState represents the current view in the app
type ViewState int

const (
	ViewScanning ViewState = iota
	ViewTargetSelection
	ViewConfirmation
	ViewSweeping
	ViewSummary
	ViewHelp
)

// AppModel is the root model for the interactive TUI
type AppModel struct {
	state         ViewState
	previousState ViewState

	ctx    context.Context
	cancel context.CancelFunc

	config   *config.Config
	env      *platform.HostEnvironment
	logger   *logging.Logger
	outcomes []*cleaner.Outcome

	scanView    *ScanViewModel
	targetView  *TargetViewModel
	confirmView *ConfirmViewModel
	sweepView   *SweepViewModel
	summaryView *SummaryViewModel

	width  int
	height int
	err    error
}

// NewAppModel creates a new app model. Cancelling ctx stops any running sweep.
func NewAppModel(ctx context.Context, cfg *config.Config, env *platform.HostEnvironment, logger *logging.Logger) *AppModel {
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &AppModel{
		state:  ViewScanning,
		ctx:    ctx,
		cancel: cancel,
		config: cfg,
		env:    env,
		logger: logger,
	}
}

// Outcomes returns the result of the sweep, nil if none ran
func (m *AppModel) Outcomes() []*cleaner.Outcome {
	return m.outcomes
}

// Err returns the error that stopped the session, if any
func (m *AppModel) Err() error {
	return m.err
}

// Init starts the dry-run survey of every target
func (m *AppModel) Init() tea.Cmd {
	m.scanView = NewScanViewModel(m.ctx, m.config, m.env, scanner.AllTargets())
	return m.scanView.Init()
}

// Update handles messages
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == ViewHelp {
			m.state = m.previousState
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c":
			if m.state == ViewSweeping {
				// Stop deleting; the sweep returns partial results.
				m.cancel()
				return m, nil
			}
			m.cancel()
			return m, tea.Quit
		case "q":
			if m.state != ViewSweeping {
				m.cancel()
				return m, tea.Quit
			}
		case "?":
			if m.state != ViewSweeping {
				m.previousState = m.state
				m.state = ViewHelp
				return m, nil
			}
		case "esc":
			if m.state == ViewConfirmation {
				m.state = ViewTargetSelection
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ScanCompleteMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.targetView = NewTargetViewModel(msg.Outcomes, msg.Roots, m.config.EnabledTargets(), m.width, m.height)
		m.state = ViewTargetSelection
		return m, nil

	case TargetsSelectedMsg:
		if len(msg.Items) == 0 {
			return m, nil
		}
		m.confirmView = NewConfirmViewModel(msg.Items, m.config.DryRun, m.width, m.height)
		m.state = ViewConfirmation
		return m, nil

	case ConfirmedMsg:
		items := m.confirmView.items
		m.sweepView = NewSweepViewModel(m.ctx, m.config, m.env, m.logger, items, m.width)
		m.state = ViewSweeping
		return m, m.sweepView.Init()

	case ReviewSelectionMsg:
		m.state = ViewTargetSelection
		return m, nil

	case SweepCompleteMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.outcomes = msg.Outcomes
		m.summaryView = NewSummaryViewModel(msg.Outcomes, m.width)
		m.state = ViewSummary
		return m, nil
	}

	return m.delegateUpdate(msg)
}

// delegateUpdate delegates the update to the current view
func (m *AppModel) delegateUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.state {
	case ViewScanning:
		if m.scanView != nil {
			m.scanView, cmd = m.scanView.Update(msg)
		}
	case ViewTargetSelection:
		if m.targetView != nil {
			m.targetView, cmd = m.targetView.Update(msg)
		}
	case ViewConfirmation:
		if m.confirmView != nil {
			m.confirmView, cmd = m.confirmView.Update(msg)
		}
	case ViewSweeping:
		if m.sweepView != nil {
			m.sweepView, cmd = m.sweepView.Update(msg)
		}
	case ViewSummary:
		if m.summaryView != nil {
			m.summaryView, cmd = m.summaryView.Update(msg)
		}
	}

	return m, cmd
}

// View renders the current view
func (m *AppModel) View() string {
	if m.err != nil {
		return styles.ErrorStyle.Render("Error: "+m.err.Error()) + "\n\nPress q to quit."
	}

	switch m.state {
	case ViewScanning:
		if m.scanView != nil {
			return m.scanView.View()
		}
	case ViewTargetSelection:
		if m.targetView != nil {
			return m.targetView.View()
		}
	case ViewConfirmation:
		if m.confirmView != nil {
			return m.confirmView.View()
		}
	case ViewSweeping:
		if m.sweepView != nil {
			return m.sweepView.View()
		}
	case ViewSummary:
		if m.summaryView != nil {
			return m.summaryView.View()
		}
	case ViewHelp:
		return m.renderHelp()
	}

	return "Loading..."
}

func (m *AppModel) renderHelp() string {
	var viewName, helpContent string

	switch m.previousState {
	case ViewScanning:
		viewName, helpContent = "Survey", helpScan
	case ViewTargetSelection:
		viewName, helpContent = "Target Selection", helpTargets
	case ViewConfirmation:
		viewName, helpContent = "Confirmation", helpConfirm
	case ViewSummary:
		viewName, helpContent = "Summary", helpSummary
	default:
		viewName, helpContent = "General", helpGeneral
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(fmt.Sprintf("Help - %s", viewName)))
	b.WriteString("\n\n")
	b.WriteString(helpContent)
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render("Press any key to close"))
	return b.String()
}

const helpScan = `Measuring what each target would delete. Nothing is removed yet.

Actions:
  ctrl+c  - Cancel and exit
  q       - Cancel and exit`

const helpTargets = `Select which targets to sweep.

Navigation:
  up/k    - Move up
  down/j  - Move down
  g / G   - Top / bottom

Selection:
  space   - Toggle target
  x       - Toggle and move down
  ctrl+a  - Select all
  ctrl+d  - Deselect all
  i       - Show target roots

Actions:
  enter   - Continue to confirmation
  q       - Quit`

const helpConfirm = `Review and confirm the sweep.

Navigation:
  left/right/h/l - Switch between buttons

Actions:
  enter   - Choose the highlighted button
  y       - Yes, sweep
  e       - Edit selection
  n       - Cancel and exit
  esc     - Go back

Deleted files cannot be recovered!`

const helpSummary = `The sweep is complete.

Actions:
  f       - Toggle the failure list
  enter   - Exit
  q       - Exit`

const helpGeneral = `winsweep - Interactive Mode

Global Shortcuts:
  ?       - Toggle this help
  esc     - Go back
  q       - Quit (except while sweeping)
  ctrl+c  - Quit, or stop a running sweep`

// ScanCompleteMsg carries the dry-run survey
type ScanCompleteMsg struct {
	Outcomes []*cleaner.Outcome
	Roots    map[scanner.Target][]string
	Err      error
}

// TargetsSelectedMsg carries the chosen targets
type TargetsSelectedMsg struct {
	Items []TargetItem
}

// ConfirmedMsg starts the sweep
type ConfirmedMsg struct{}

// ReviewSelectionMsg returns to target selection
type ReviewSelectionMsg struct{}

// SweepProgressMsg relays one progress snapshot
type SweepProgressMsg struct {
	Progress progress.SweepProgress
	source   <-chan progress.SweepProgress
}

// waitForProgress reads one snapshot; a closed channel yields no message
func waitForProgress(ch <-chan progress.SweepProgress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return SweepProgressMsg{Progress: p, source: ch}
	}
}

// SweepCompleteMsg carries the final outcomes
type SweepCompleteMsg struct {
	Outcomes []*cleaner.Outcome
	Err      error
}
