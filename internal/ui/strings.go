package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// truncate cuts value to width terminal cells, ending in "…" when shortened.
func truncate(value string, width int) string {
	value = strings.TrimSpace(value)
	if width <= 0 {
		return value
	}
	return ansi.Truncate(value, width, "…")
}

// truncateMiddle keeps both ends of value, so paths stay recognizable.
func truncateMiddle(value string, width int) string {
	value = strings.TrimSpace(value)
	total := lipgloss.Width(value)
	if width <= 0 || total <= width {
		return value
	}
	if width < 3 {
		return ansi.Truncate(value, width, "")
	}
	head := (width - 1) / 2
	tail := width - 1 - head
	return ansi.Truncate(value, head, "") + "…" + ansi.TruncateLeft(value, total-tail, "")
}

func padRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func padLeft(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return strings.Repeat(" ", gap) + s
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
