package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/trolley/internal/logtail"
)

// logTailMsg carries the latest lines of the trolley log file.
type logTailMsg struct {
	lines []string
	err   error
}

// refreshLogs reads the log tail off the update loop.
func (m *Model) refreshLogs() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logTailMsg{lines: lines, err: err}
	}
}

// updateLogViewport resizes the pane and re-renders its content.
func (m *Model) updateLogViewport() {
	width := maxInt(m.width-4, 1)
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(width, LogPaneHeight)
	}
	m.logViewport.Width = width
	m.logViewport.Height = LogPaneHeight
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.SurfaceAlt))
	m.logViewport.SetContent(m.renderLogContent())
	m.logViewport.GotoBottom()
}

// renderLogContent formats the buffered lines for the viewport.
func (m *Model) renderLogContent() string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := newBar(m.theme.SurfaceAlt)

	if m.logErr != nil {
		return bg.text("Log unavailable: "+m.logErr.Error(), styles.DangerText)
	}
	if len(m.logLines) == 0 {
		return bg.text("No log output yet", styles.FaintText)
	}

	out := make([]string, 0, len(m.logLines))
	for _, line := range m.logLines {
		out = append(out, m.colorizeLogLine(logtail.Parse(line), styles, bg))
	}
	return strings.Join(out, "\n")
}

// colorizeLogLine renders one decoded entry with a colored level tag.
func (m *Model) colorizeLogLine(entry logtail.Entry, styles Styles, bg bar) string {
	formatted := entry.Format()
	if entry.Raw != "" || entry.Level == "" {
		return bg.text(truncate(formatted, m.logViewport.Width), styles.Text)
	}

	var b strings.Builder
	if !entry.Time.IsZero() {
		b.WriteString(bg.text(entry.Time.Local().Format("15:04:05"), styles.FaintText))
		b.WriteString(bg.gap(1))
	}
	tag := logtail.LevelTag(entry.Level)
	b.WriteString(bg.text(tag, m.levelStyle(tag, styles).Bold(true)))

	// Everything after the tag, as Format would print it.
	rest := formatted
	if idx := strings.Index(formatted, tag); idx >= 0 {
		rest = formatted[idx+len(tag):]
	}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		b.WriteString(bg.gap(1))
		b.WriteString(bg.text(truncate(rest, maxInt(m.logViewport.Width-14, 10)), styles.Text))
	}
	return b.String()
}

// levelStyle returns the style for a three-letter level tag.
func (m *Model) levelStyle(tag string, styles Styles) lipgloss.Style {
	switch tag {
	case "INF":
		return styles.SuccessText
	case "WRN":
		return styles.WarningText
	case "ERR", "FTL", "PNC":
		return styles.DangerText
	case "DBG", "TRC":
		return styles.InfoText
	default:
		return styles.Text
	}
}

// renderLogPane renders the log viewport in a titled box.
func (m Model) renderLogPane() string {
	title := "Log"
	if m.logPath != "" {
		title = "Log " + truncateMiddle(m.logPath, maxInt(m.width/2, 10))
	}
	return m.renderBox(title, m.logViewport.View(), m.width, LogPaneHeight+2, false)
}
