package utils

import (
	"fmt"
	"strings"

	"github.com/fenilsonani/winsweep/internal/ui/styles"
)

const (
	// MinTerminalWidth is the minimum recommended terminal width
	MinTerminalWidth = 80
	// MinTerminalHeight is the minimum recommended terminal height
	MinTerminalHeight = 24
)

// TruncatePath shortens a path to maxWidth, keeping the file name and
// dropping leading directories. Both / and \ count as separators so
// Windows paths shorten the same way on any host.
func TruncatePath(path string, maxWidth int) string {
	if len(path) <= maxWidth {
		return path
	}
	if maxWidth < 10 {
		return "..."
	}

	cut := strings.LastIndexAny(path, `/\`)
	file := path[cut+1:]
	if len(file) > maxWidth-4 {
		return "..." + file[len(file)-(maxWidth-3):]
	}

	// Walk separators right to left, keeping as much of the tail as fits.
	tail := path[cut:]
	for {
		prev := strings.LastIndexAny(path[:cut], `/\`)
		if prev < 0 || len(path)-prev+3 > maxWidth {
			break
		}
		cut = prev
		tail = path[cut:]
	}
	return "..." + tail
}

// CalculatePageSize returns how many list rows fit below the header and footer
func CalculatePageSize(terminalHeight int) int {
	const reservedLines = 10

	pageSize := terminalHeight - reservedLines
	if pageSize < 5 {
		pageSize = 5
	}
	return pageSize
}

// IsTerminalTooSmall checks if the terminal is below minimum recommended size
func IsTerminalTooSmall(width, height int) bool {
	return width < MinTerminalWidth || height < MinTerminalHeight
}

// GetSizeWarningBanner returns a warning banner if terminal is too small
func GetSizeWarningBanner(width, height int) string {
	if !IsTerminalTooSmall(width, height) {
		return ""
	}

	warning := "Terminal too small! Recommended: 80x24 or larger"
	if width > 0 && height > 0 {
		warning += styles.DimStyle.Render(" (current: ") +
			styles.WarningStyle.Render(fmt.Sprintf("%dx%d", width, height)) +
			styles.DimStyle.Render(")")
	}

	return styles.WarningStyle.Render(warning) + "\n\n"
}

// TruncateString truncates a string to maxLen, adding ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}

// Window returns the [start, end) slice of a list of n rows that keeps
// cursor visible on a page of size rows
func Window(n, cursor, size int) (int, int) {
	if n <= size {
		return 0, n
	}
	start := cursor - size/2
	if start < 0 {
		start = 0
	}
	if start+size > n {
		start = n - size
	}
	return start, start + size
}
