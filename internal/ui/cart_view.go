package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/trolley/internal/apperr"
	"github.com/five82/trolley/internal/cart"
	"github.com/five82/trolley/internal/cartsync"
)

// renderMain renders the full page.
func (m Model) renderMain() string {
	var b strings.Builder

	// Header line 1: logo + status
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Header line 2: command bar
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	// Main content
	b.WriteString(m.renderContent())
	b.WriteString("\n")

	b.WriteString(m.renderNoticeBar())

	return b.String()
}

// contentHeight is the number of rows left for the page body.
func (m Model) contentHeight() int {
	// header, command bar, notice bar
	h := m.height - 3
	if m.showLogs {
		h -= LogPaneHeight + 2
	}
	return maxInt(h, 3)
}

// renderContent picks the page body for the current snapshot.
func (m Model) renderContent() string {
	var body string
	switch {
	case m.snapshot.NeedsLogin:
		body = m.renderLoginPage()
	case !m.snapshot.HasCart && m.snapshot.View.Status == cartsync.StatusFailed:
		body = m.renderErrorPage()
	case !m.snapshot.HasCart:
		body = m.renderLoadingPage()
	default:
		body = m.renderCart()
	}

	if !m.showLogs {
		return body
	}
	return body + "\n" + m.renderLogPane()
}

// renderCart renders the cart lines and totals inside a box.
func (m Model) renderCart() string {
	height := m.contentHeight()
	innerWidth := maxInt(m.width-4, 20)
	view := m.snapshot.View

	if view.Cart.Len() == 0 {
		styles := m.theme.Styles()
		empty := lipgloss.Place(innerWidth, maxInt(height-2, 1), lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("Your cart is empty"))
		return m.renderBox("Cart", empty, m.width, height, true)
	}

	cols := m.cartColumns(innerWidth)
	rows := make([]string, 0, view.Cart.Len()+4)
	rows = append(rows, m.renderCartHeaderRow(cols))

	// Keep the cursor visible when the cart is taller than the box.
	listHeight := maxInt(height-2-5, 1)
	start := 0
	if m.selectedRow >= listHeight {
		start = m.selectedRow - listHeight + 1
	}
	end := minInt(view.Cart.Len(), start+listHeight)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderCartRow(view.Cart.Items[i], i == m.selectedRow, cols))
	}

	rows = append(rows, "")
	rows = append(rows, m.renderTotals(view.Totals, innerWidth)...)

	return m.renderBox(fmt.Sprintf("Cart (%d)", view.Cart.Len()), strings.Join(rows, "\n"), m.width, height, true)
}

// cartColumns holds column widths for the current terminal width.
type cartColumns struct {
	name, product, price, qty, amount, state int
}

func (m Model) cartColumns(width int) cartColumns {
	cols := cartColumns{qty: 9, amount: 16, state: 9}
	if width >= LayoutCompactWidth {
		cols.price = 16
	}
	if width >= LayoutWideWidth {
		cols.product = 10
	}
	// two spaces of gutter between columns, two for the cursor
	used := 2 + cols.product + cols.price + cols.qty + cols.amount + cols.state + 2*5
	cols.name = maxInt(width-used, 8)
	return cols
}

func (m Model) renderCartHeaderRow(cols cartColumns) string {
	styles := m.theme.Styles()
	parts := []string{"  " + padRight("Item", cols.name)}
	if cols.product > 0 {
		parts = append(parts, padRight("Product", cols.product))
	}
	if cols.price > 0 {
		parts = append(parts, padLeft("Unit price", cols.price))
	}
	parts = append(parts,
		padLeft("Qty", cols.qty),
		padLeft("Amount", cols.amount),
		padRight("", cols.state),
	)
	return styles.FaintText.Bold(true).Render(strings.Join(parts, "  "))
}

func (m Model) renderCartRow(line cart.Line, selected bool, cols cartColumns) string {
	styles := m.theme.Styles()
	view := m.snapshot.View

	cursor := "  "
	if selected {
		cursor = "▸ "
	}

	qty := fmt.Sprintf("− %d +", line.Quantity)
	if line.Quantity <= 1 {
		qty = fmt.Sprintf("  %d +", line.Quantity)
	}

	stateLabel := ""
	if view.IsPending(line.ItemID) {
		stateLabel = "syncing"
	}

	parts := []string{cursor + padRight(truncate(line.Name, cols.name), cols.name)}
	if cols.product > 0 {
		parts = append(parts, padRight(fmt.Sprintf("#%d", line.ProductID), cols.product))
	}
	if cols.price > 0 {
		parts = append(parts, padLeft(cart.FormatAmount(line.UnitPrice), cols.price))
	}
	parts = append(parts,
		padLeft(qty, cols.qty),
		padLeft(cart.FormatAmount(line.Amount()), cols.amount),
		padRight(stateLabel, cols.state),
	)
	row := strings.Join(parts, "  ")

	if selected {
		return styles.Selected.Render(row)
	}
	if stateLabel != "" {
		return styles.Syncing.Render(row)
	}
	return styles.Text.Render(row)
}

// renderTotals renders the right-aligned totals block.
func (m Model) renderTotals(t cart.Totals, width int) []string {
	styles := m.theme.Styles()
	labelW := 10
	valueW := 18
	pad := maxInt(width-labelW-valueW, 0)

	row := func(label, value string, style lipgloss.Style) string {
		return strings.Repeat(" ", pad) + styles.MutedText.Render(padRight(label, labelW)) +
			style.Render(padLeft(value, valueW))
	}

	rows := []string{row("Subtotal", cart.FormatAmount(t.Subtotal), styles.Text)}
	if !t.Tax.IsZero() {
		rows = append(rows, row("Tax", cart.FormatAmount(t.Tax), styles.Text))
	}
	rows = append(rows, row("Total", cart.FormatAmount(t.Total), styles.Total))
	return rows
}

// renderErrorPage is shown when the cart could not be loaded at all.
func (m Model) renderErrorPage() string {
	styles := m.theme.Styles()
	err := m.snapshot.View.LoadErr

	var b strings.Builder
	b.WriteString(styles.DangerText.Render("Could not load your cart"))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(apperr.PublicMessage(err)))
	b.WriteString("\n")
	if err != nil {
		b.WriteString(styles.FaintText.Render(truncate(err.Error(), maxInt(m.width-10, 20))))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.AccentText.Render("r"))
	b.WriteString(styles.MutedText.Render(" try again   "))
	b.WriteString(styles.AccentText.Render("l"))
	b.WriteString(styles.MutedText.Render(" show logs"))

	return m.renderCentered(b.String())
}

// renderLoginPage is shown when the backend rejects the stored token.
func (m Model) renderLoginPage() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.WarningText.Bold(true).Render("Sign in required"))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render("Your session has expired or no access token is stored."))
	b.WriteString("\n")
	if m.loginHint != "" {
		b.WriteString(styles.MutedText.Render("Store a fresh token in "))
		b.WriteString(styles.AccentText.Render(truncateMiddle(m.loginHint, maxInt(m.width-40, 20))))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.AccentText.Render("r"))
	b.WriteString(styles.MutedText.Render(" retry after signing in   "))
	b.WriteString(styles.AccentText.Render("q"))
	b.WriteString(styles.MutedText.Render(" quit"))

	return m.renderCentered(b.String())
}

func (m Model) renderLoadingPage() string {
	return m.renderCentered(m.theme.Styles().MutedText.Render("Loading cart..."))
}

func (m Model) renderCentered(content string) string {
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center, content)
}

// renderBox draws a bordered panel with a title in the top border.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	border := m.theme.Border
	if focused {
		border = m.theme.BorderFocus
	}
	styles := m.theme.Styles()

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(0, 1).
		Width(maxInt(width-2, 1)).
		Height(maxInt(height-2, 1)).
		Render(content)

	if title == "" {
		return box
	}
	// Splice the title into the top border.
	lines := strings.SplitN(box, "\n", 2)
	label := styles.AccentText.Bold(true).Render(" " + title + " ")
	top := lipgloss.NewStyle().Foreground(lipgloss.Color(border)).Render("╭─") + label +
		lipgloss.NewStyle().Foreground(lipgloss.Color(border)).Render(
			strings.Repeat("─", maxInt(width-4-lipgloss.Width(label), 0))+"╮")
	if len(lines) == 2 {
		return top + "\n" + lines[1]
	}
	return top
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
