package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/trolley/internal/apperr"
	"github.com/five82/trolley/internal/cartsync"
)

// statusKey maps the snapshot onto a StatusColors key.
func (m Model) statusKey() string {
	view := m.snapshot.View
	if m.snapshot.NeedsLogin {
		return "unauthenticated"
	}
	if view.Status == cartsync.StatusReady && (len(view.Pending) > 0 || len(view.Removing) > 0) {
		return "syncing"
	}
	return view.Status.String()
}

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := newBar(m.theme.Surface)

	view := m.snapshot.View
	status := m.statusKey()

	parts := []string{
		bg.text("trolley", styles.Logo),
		m.theme.Styles().StatusStyle(status).Render(strings.ToUpper(status)),
	}

	if m.snapshot.HasCart {
		lines := view.Cart.Len()
		parts = append(parts,
			bg.stat(fmt.Sprint(lines), plural(lines, "line", "lines"), styles.Text.Bold(true), styles.MutedText),
			bg.stat(fmt.Sprint(view.Totals.Units), plural(view.Totals.Units, "unit", "units"), styles.Text.Bold(true), styles.MutedText),
		)
	}

	if n := len(view.Pending) + len(view.Removing); n > 0 {
		parts = append(parts, bg.text(fmt.Sprintf("%d unsaved", n), styles.WarningText))
	}

	if view.Fetching {
		parts = append(parts, bg.text("Refreshing...", styles.InfoText))
	} else if view.Reconciling {
		parts = append(parts, bg.text("Resync pending", styles.WarningText))
	}

	if m.snapshot.IsOffline() {
		parts = append(parts, bg.text(classifyConnectionError(view.LoadErr), styles.DangerText))
	}

	if !m.snapshot.LastUpdated.IsZero() {
		parts = append(parts,
			bg.stat("updated", m.snapshot.LastUpdated.Format("15:04:05"), styles.FaintText, styles.MutedText))
	}

	return styles.Header.Width(m.width).Render(bg.join(parts, 2))
}

// classifyConnectionError returns a short label for a load failure.
func classifyConnectionError(err error) string {
	if err == nil {
		return "OFFLINE"
	}
	switch apperr.CodeOf(err) {
	case apperr.CodeUnauthenticated:
		return "SIGNED OUT"
	case apperr.CodeServerRejected:
		return "SERVER ERROR"
	case apperr.CodeInvalidResponse:
		return "BAD RESPONSE"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := newBar(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch {
	case m.snapshot.NeedsLogin:
		commands = []cmd{
			{"r", "Retry"},
			{"l", "Logs"},
			{"q", "Quit"},
		}
	case !m.snapshot.HasCart:
		commands = []cmd{
			{"r", "Retry"},
			{"l", "Logs"},
			{"q", "Quit"},
			{"?", "More"},
		}
	default:
		logsLabel := "Logs"
		if m.showLogs {
			logsLabel = "Hide logs"
		}
		commands = []cmd{
			{"+/-", "Quantity"},
			{"d", "Remove"},
			{"j/k", "Navigate"},
			{"r", "Reload"},
			{"l", logsLabel},
			{"?", "More"},
		}
	}

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments, bg.hint(c.key, c.desc, styles.AccentText, styles.MutedText))
	}
	segments = append(segments, bg.hint("T", m.theme.Name, styles.AccentText, styles.FaintText))

	return styles.Footer.Width(m.width).Render(bg.join(segments, 2))
}

// renderNoticeBar renders the most recent notice, or an empty line.
func (m Model) renderNoticeBar() string {
	notice, ok := m.snapshot.LatestNotice()
	if !ok {
		return lipgloss.NewStyle().Width(m.width).Render("")
	}
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := newBar(m.theme.SurfaceAlt)

	style := styles.WarningText
	if notice.Blocking {
		style = styles.DangerText
	}
	parts := []string{
		bg.text("!", style.Bold(true)),
		bg.text(truncate(notice.Message, maxInt(m.width-30, 10)), style),
		bg.text(notice.At.Format("15:04:05"), styles.FaintText),
	}
	if count := len(m.snapshot.Notices); count > 1 {
		parts = append(parts, bg.text(fmt.Sprintf("+%d more", count-1), styles.FaintText))
	}
	parts = append(parts, bg.hint("esc", "dismiss", styles.AccentText, styles.MutedText))

	return bg.fill(bg.gap(1)+bg.join(parts, 2), m.width)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
