package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fenilsonani/winsweep/internal/ui/styles"
)

// InfoPanel is a bordered box of label/value rows
type InfoPanel struct {
	title   string
	content []InfoItem
	visible bool
	width   int
}

// InfoItem represents a single piece of information
type InfoItem struct {
	Label string
	Value string
}

// NewInfoPanel creates a hidden info panel
func NewInfoPanel(title string, width int) *InfoPanel {
	return &InfoPanel{title: title, width: width}
}

// AddItem adds an information item to the panel
func (p *InfoPanel) AddItem(label, value string) {
	p.content = append(p.content, InfoItem{Label: label, Value: value})
}

// SetVisible sets the visibility of the panel
func (p *InfoPanel) SetVisible(visible bool) {
	p.visible = visible
}

// IsVisible returns whether the panel is visible
func (p *InfoPanel) IsVisible() bool {
	return p.visible
}

// Toggle toggles the visibility of the panel
func (p *InfoPanel) Toggle() {
	p.visible = !p.visible
}

// SetWidth sets the width of the panel
func (p *InfoPanel) SetWidth(width int) {
	p.width = width
}

// Render renders the panel, or "" while hidden or empty
func (p *InfoPanel) Render() string {
	if !p.visible || len(p.content) == 0 {
		return ""
	}

	panelWidth := p.width / 2
	if panelWidth < 40 {
		panelWidth = 40
	}
	if panelWidth > 100 {
		panelWidth = 100
	}

	panelStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.FocusBorder).
		Padding(1, 2).
		Width(panelWidth)

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Underline(true)
	labelStyle := lipgloss.NewStyle().
		Foreground(styles.Secondary).
		Bold(true)

	var content strings.Builder
	content.WriteString(titleStyle.Render(p.title))
	content.WriteString("\n\n")

	for i, item := range p.content {
		content.WriteString(labelStyle.Render(item.Label) + ": ")
		content.WriteString(item.Value)
		if i < len(p.content)-1 {
			content.WriteString("\n")
		}
	}

	content.WriteString("\n\n")
	content.WriteString(styles.HelpStyle.Render("Press 'i' or 'esc' to close"))

	return panelStyle.Render(content.String())
}

// TargetInfoPanel describes a sweep target and what it resolved to
func TargetInfoPanel(name, description string, roots []string, files int, size int64, width int) *InfoPanel {
	panel := NewInfoPanel("Target Information", width)

	panel.AddItem("Target", name)
	panel.AddItem("Description", description)
	panel.AddItem("Files", fmt.Sprintf("%d", files))
	panel.AddItem("Total Size", humanize.IBytes(uint64(size)))

	if len(roots) == 0 {
		panel.AddItem("Roots", styles.DimStyle.Render("none on this host"))
	}
	for i, root := range roots {
		panel.AddItem(fmt.Sprintf("Root %d", i+1), styles.FilePathStyle.Render(root))
	}

	return panel
}
