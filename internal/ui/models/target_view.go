package models

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/fenilsonani/winsweep/internal/ui/components"
	"github.com/fenilsonani/winsweep/internal/ui/styles"
	uiutils "github.com/fenilsonani/winsweep/internal/ui/utils"
)

// TargetItem is one row of the target picker
type TargetItem struct {
	Target   scanner.Target
	Roots    []string
	Files    int
	Size     int64
	Selected bool
}

// NeedsAdmin reports whether sweeping the target usually requires elevation
func (i TargetItem) NeedsAdmin() bool {
	return i.Target.Kind == scanner.Prefetch || i.Target.Kind == scanner.DumpFiles
}

// TargetViewModel handles target selection
type TargetViewModel struct {
	items  []TargetItem
	cursor int
	info   *components.InfoPanel
	width  int
	height int
}

// NewTargetViewModel builds the picker from a dry-run survey. Targets in
// preselect start selected; targets that resolved to nothing are hidden.
func NewTargetViewModel(preview []*cleaner.Outcome, roots map[scanner.Target][]string, preselect []scanner.Target, width, height int) *TargetViewModel {
	selected := make(map[scanner.Target]bool, len(preselect))
	for _, t := range preselect {
		selected[t] = true
	}

	items := make([]TargetItem, 0, len(preview))
	for _, o := range preview {
		r := roots[o.Target]
		if len(r) == 0 {
			continue
		}
		items = append(items, TargetItem{
			Target:   o.Target,
			Roots:    r,
			Files:    o.Attempted,
			Size:     o.BytesFreed,
			Selected: selected[o.Target],
		})
	}

	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	return &TargetViewModel{
		items:  items,
		width:  width,
		height: height,
	}
}

// Items returns the rows in display order
func (m *TargetViewModel) Items() []TargetItem {
	return m.items
}

// Init initializes the target view
func (m *TargetViewModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *TargetViewModel) Update(msg tea.Msg) (*TargetViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if m.info != nil && m.info.IsVisible() {
			switch msg.String() {
			case "i", "esc":
				m.info.SetVisible(false)
			}
			return m, nil
		}

		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "g":
			m.cursor = 0
		case "G":
			if len(m.items) > 0 {
				m.cursor = len(m.items) - 1
			}
		case " ", "space":
			if m.cursor < len(m.items) {
				m.items[m.cursor].Selected = !m.items[m.cursor].Selected
			}
		case "x":
			if m.cursor < len(m.items) {
				m.items[m.cursor].Selected = !m.items[m.cursor].Selected
				if m.cursor < len(m.items)-1 {
					m.cursor++
				}
			}
		case "ctrl+a":
			for i := range m.items {
				m.items[i].Selected = true
			}
		case "ctrl+d":
			for i := range m.items {
				m.items[i].Selected = false
			}
		case "i":
			if m.cursor < len(m.items) {
				it := m.items[m.cursor]
				m.info = components.TargetInfoPanel(it.Target.String(), it.Target.Description(), it.Roots, it.Files, it.Size, m.width)
				m.info.SetVisible(true)
			}
		case "enter":
			return m, m.proceed()
		}
	}

	return m, nil
}

// View renders the target selection view
func (m *TargetViewModel) View() string {
	var b strings.Builder

	b.WriteString(uiutils.GetSizeWarningBanner(m.width, m.height))

	b.WriteString(styles.TitleStyle.Render("Select Targets to Sweep"))
	b.WriteString("\n\n")

	if m.info != nil && m.info.IsVisible() {
		b.WriteString(m.info.Render())
		return b.String()
	}

	if len(m.items) == 0 {
		b.WriteString(styles.WarningStyle.Render("No sweepable locations exist on this host."))
		b.WriteString("\n\n")
		b.WriteString(styles.HelpStyle.Render("Press q to quit"))
		return b.String()
	}

	start, end := uiutils.Window(len(m.items), m.cursor, uiutils.CalculatePageSize(m.height))
	for i := start; i < end; i++ {
		item := m.items[i]

		cursor := "  "
		if i == m.cursor {
			cursor = styles.SelectedStyle.Render("> ")
		}

		checkbox := styles.UncheckedBox()
		if item.Selected {
			checkbox = styles.CheckedBox()
		}

		sizeStyle := lipgloss.NewStyle().Foreground(styles.SizeColor(item.Size)).Bold(true)
		line := fmt.Sprintf("%s%s %-22s %6d files  %s",
			cursor,
			checkbox,
			styles.TargetStyle.Render(item.Target.Description()),
			item.Files,
			sizeStyle.Render(humanize.IBytes(uint64(item.Size))),
		)
		if item.NeedsAdmin() {
			line += " " + styles.AdminBadgeStyle.Render("ADMIN")
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	files, size, count := m.selection()
	b.WriteString("\n")
	b.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf("Selected: %d files, %s", files, humanize.IBytes(uint64(size)))))
	b.WriteString("\n\n")

	bar := components.NewStatusBar("Targets")
	bar.SetSelection(count, len(m.items), size)
	bar.SetShortcuts(
		components.Shortcut{Key: "space", Desc: "toggle"},
		components.Shortcut{Key: "enter", Desc: "continue"},
		components.Shortcut{Key: "i", Desc: "roots"},
		components.Shortcut{Key: "ctrl+a", Desc: "all"},
		components.Shortcut{Key: "ctrl+d", Desc: "none"},
		components.Shortcut{Key: "?", Desc: "help"},
		components.Shortcut{Key: "q", Desc: "quit"},
	)
	b.WriteString(bar.Render(m.width))

	return b.String()
}

func (m *TargetViewModel) selection() (files int, size int64, count int) {
	for _, it := range m.items {
		if it.Selected {
			files += it.Files
			size += it.Size
			count++
		}
	}
	return files, size, count
}

func (m *TargetViewModel) proceed() tea.Cmd {
	var selected []TargetItem
	for _, it := range m.items {
		if it.Selected {
			selected = append(selected, it)
		}
	}
	if len(selected) == 0 {
		return nil
	}

	return func() tea.Msg {
		return TargetsSelectedMsg{Items: selected}
	}
}
