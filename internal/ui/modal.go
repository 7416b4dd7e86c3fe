package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/trolley/internal/cart"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// removeConfirmedMsg is emitted when the user accepts a removal prompt.
type removeConfirmedMsg struct {
	itemID int64
}

// confirmRemoveModal asks before deleting a cart line.
type confirmRemoveModal struct {
	line cart.Line
}

func newConfirmRemoveModal(line cart.Line) confirmRemoveModal {
	return confirmRemoveModal{line: line}
}

// Update implements Modal.
func (c confirmRemoveModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Confirm):
		itemID := c.line.ItemID
		return c, func() tea.Msg { return removeConfirmedMsg{itemID: itemID} }, true
	case key.Matches(keyMsg, keys.Cancel), key.Matches(keyMsg, keys.Quit):
		return c, nil, true
	}
	return c, nil, false
}

// View implements Modal.
func (c confirmRemoveModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.DangerText.Render("Remove item"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(truncate(c.line.Name, 34)))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render(
		fmt.Sprintf("qty %d · %s", c.line.Quantity, cart.FormatAmount(c.line.Amount()))))
	b.WriteString("\n\n")
	b.WriteString(styles.AccentText.Render("y"))
	b.WriteString(styles.MutedText.Render(" remove   "))
	b.WriteString(styles.AccentText.Render("n"))
	b.WriteString(styles.MutedText.Render(" keep"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Danger)).
		Padding(1, 2).
		Width(40).
		Render(b.String())

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
