package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fenilsonani/winsweep/internal/ui/styles"
)

// Shortcut is a key hint shown on the right of the status bar
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the one-line bar at the bottom of each view
type StatusBar struct {
	viewName  string
	selected  int
	total     int
	size      int64
	shortcuts []Shortcut
}

// NewStatusBar creates a new status bar
func NewStatusBar(viewName string) *StatusBar {
	return &StatusBar{viewName: viewName}
}

// SetSelection sets the selection count, total, and size
func (s *StatusBar) SetSelection(selected, total int, size int64) {
	s.selected = selected
	s.total = total
	s.size = size
}

// SetShortcuts sets the key hints, shown in the given order
func (s *StatusBar) SetShortcuts(shortcuts ...Shortcut) {
	s.shortcuts = shortcuts
}

// Render renders the status bar with the given width
func (s *StatusBar) Render(width int) string {
	if width <= 0 {
		width = 80
	}

	var parts []string
	if s.viewName != "" {
		parts = append(parts, styles.BoldStyle.Render(s.viewName))
	}
	if s.total > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d selected", s.selected, s.total))
	}
	if s.size > 0 {
		parts = append(parts, styles.FileSizeStyle.Render(humanize.IBytes(uint64(s.size))))
	}
	leftSide := strings.Join(parts, " • ")

	hints := make([]string, 0, len(s.shortcuts))
	for _, sc := range s.shortcuts {
		hints = append(hints, fmt.Sprintf("%s:%s", styles.DimStyle.Render(sc.Key), sc.Desc))
	}

	// Drop hints from the right until the bar fits.
	rightSide := strings.Join(hints, " ")
	for len(hints) > 0 && lipgloss.Width(leftSide)+lipgloss.Width(rightSide)+3 > width {
		hints = hints[:len(hints)-1]
		rightSide = strings.Join(hints, " ")
	}

	spacing := width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide) - 2
	if spacing < 1 {
		spacing = 1
	}

	return barStyle(width).Render(leftSide + strings.Repeat(" ", spacing) + rightSide)
}

// RenderSimple renders a status bar holding a single message
func RenderSimple(message string, width int) string {
	if width <= 0 {
		width = 80
	}
	return barStyle(width).Render(message)
}

func barStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.BgDark).
		Padding(0, 1).
		Width(width)
}
