package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// bar paints runs of text on one solid background. lipgloss resets the
// background after every rendered segment, so spaces and separators between
// segments are painted explicitly.
type bar struct {
	paint lipgloss.Style
}

func newBar(color string) bar {
	return bar{paint: lipgloss.NewStyle().Background(lipgloss.Color(color))}
}

// text renders s word by word with style on the bar background.
func (b bar) text(s string, style lipgloss.Style) string {
	if s == "" {
		return ""
	}
	style = style.Background(b.paint.GetBackground())
	words := strings.Split(s, " ")
	for i, w := range words {
		if w != "" {
			words[i] = style.Render(w)
		}
	}
	return strings.Join(words, b.gap(1))
}

func (b bar) gap(n int) string {
	return b.paint.Render(strings.Repeat(" ", n))
}

// stat renders "<value> <label>", e.g. "3 lines".
func (b bar) stat(value, label string, valueStyle, labelStyle lipgloss.Style) string {
	return b.text(value, valueStyle) + b.gap(1) + b.text(label, labelStyle)
}

// hint renders "<key>:<desc>" for the command and notice bars.
func (b bar) hint(key, desc string, keyStyle, descStyle lipgloss.Style) string {
	return b.text(key, keyStyle) + b.paint.Render(":") + b.text(desc, descStyle)
}

func (b bar) join(parts []string, gap int) string {
	return strings.Join(parts, b.gap(gap))
}

// fill pads content to width with the bar background.
func (b bar) fill(content string, width int) string {
	return b.paint.Width(width).Render(content)
}
