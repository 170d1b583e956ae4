package models

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/fenilsonani/winsweep/internal/ui/styles"
	uiutils "github.com/fenilsonani/winsweep/internal/ui/utils"
)

// RiskLevel represents the risk level of a sweep
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

const (
	buttonYes = iota
	buttonReview
	buttonCancel
)

// ConfirmViewModel handles the confirmation screen
type ConfirmViewModel struct {
	items     []TargetItem
	dryRun    bool
	cursor    int
	riskLevel RiskLevel
	width     int
	height    int
}

// NewConfirmViewModel creates a new confirm view model. High-risk sweeps
// start with Cancel highlighted.
func NewConfirmViewModel(items []TargetItem, dryRun bool, width, height int) *ConfirmViewModel {
	risk := calculateRiskLevel(items)
	cursor := buttonYes
	if risk == RiskHigh && !dryRun {
		cursor = buttonCancel
	}

	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	return &ConfirmViewModel{
		items:     items,
		dryRun:    dryRun,
		cursor:    cursor,
		riskLevel: risk,
		width:     width,
		height:    height,
	}
}

// calculateRiskLevel grades a selection by file count and admin-only targets
func calculateRiskLevel(items []TargetItem) RiskLevel {
	files := 0
	admin := false
	for _, it := range items {
		files += it.Files
		admin = admin || it.NeedsAdmin()
	}

	switch {
	case files > 5000 || admin:
		return RiskHigh
	case files >= 500 || len(items) > 3:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Init initializes the confirm view
func (m *ConfirmViewModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *ConfirmViewModel) Update(msg tea.Msg) (*ConfirmViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "left", "h":
			if m.cursor > buttonYes {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < buttonCancel {
				m.cursor++
			}
		case "tab":
			m.cursor = (m.cursor + 1) % 3
		case "enter":
			switch m.cursor {
			case buttonYes:
				return m, func() tea.Msg { return ConfirmedMsg{} }
			case buttonReview:
				return m, func() tea.Msg { return ReviewSelectionMsg{} }
			default:
				return m, tea.Quit
			}
		case "y":
			return m, func() tea.Msg { return ConfirmedMsg{} }
		case "e":
			return m, func() tea.Msg { return ReviewSelectionMsg{} }
		case "n":
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the confirmation view
func (m *ConfirmViewModel) View() string {
	var b strings.Builder

	b.WriteString(uiutils.GetSizeWarningBanner(m.width, m.height))

	title := "Confirm Sweep"
	if m.dryRun {
		title = "Confirm Dry Run"
	}
	b.WriteString(styles.TitleStyle.Render(title))
	b.WriteString("\n\n")

	var files int
	var size int64
	for _, it := range m.items {
		files += it.Files
		size += it.Size
	}

	verb := "delete"
	if m.dryRun {
		verb = "simulate deleting"
	}
	b.WriteString(styles.BoldStyle.Render(fmt.Sprintf("You are about to %s %d files (%s)",
		verb, files, humanize.IBytes(uint64(size)))))
	b.WriteString("\n\n")

	b.WriteString(styles.SubtitleStyle.Render("Breakdown:"))
	b.WriteString("\n")
	for _, it := range m.items {
		b.WriteString(fmt.Sprintf("  %-24s %6d files (%s)\n",
			styles.TargetStyle.Render(it.Target.Description()+":"),
			it.Files,
			styles.FileSizeStyle.Render(humanize.IBytes(uint64(it.Size)))))
	}
	b.WriteString("\n")

	riskText, render := m.riskDisplay()
	b.WriteString(fmt.Sprintf("Risk Level: %s\n", render(riskText)))

	if !m.dryRun {
		b.WriteString("\n")
		b.WriteString(styles.WarningStyle.Render("This action cannot be undone!"))
	}
	b.WriteString("\n\n")

	buttons := []string{"[ Yes, sweep ]", "[ Review ]", "[ Cancel ]"}
	buttons[m.cursor] = styles.HighlightStyle.Render(buttons[m.cursor])
	b.WriteString(strings.Join(buttons, "  "))
	b.WriteString("\n\n")

	helpText := "y:confirm  e:edit  n:cancel  left/right:navigate"
	if m.width < 60 {
		helpText = "y:yes  e:edit  n:no"
	}
	b.WriteString(styles.HelpStyle.Render(helpText))

	return b.String()
}

func (m *ConfirmViewModel) riskDisplay() (string, func(...string) string) {
	switch m.riskLevel {
	case RiskHigh:
		return "HIGH (system locations or many files)", styles.ErrorStyle.Render
	case RiskMedium:
		return "MEDIUM", styles.WarningStyle.Render
	default:
		return "LOW (temporary/cache files only)", styles.SuccessStyle.Render
	}
}
