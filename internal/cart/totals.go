package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Totals are the monetary values derived from a cart.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Units    int
}

// DeriveTotals sums unit price × quantity over every line and applies taxRate
// on top (0 for none, 0.11 for an 11% surcharge). No rounding is applied.
func DeriveTotals(c Cart, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	units := 0
	for _, line := range c.Items {
		subtotal = subtotal.Add(line.Amount())
		units += line.Quantity
	}
	tax := decimal.Zero
	if !taxRate.IsZero() {
		tax = subtotal.Mul(taxRate)
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
		Units:    units,
	}
}

// FormatAmount renders a rupiah amount rounded to whole units with dot
// thousand separators, e.g. "Rp 165.000".
func FormatAmount(d decimal.Decimal) string {
	rounded := d.Round(0)
	digits := rounded.Abs().String()

	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteString("-")
	}
	b.WriteString("Rp ")
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(".")
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
