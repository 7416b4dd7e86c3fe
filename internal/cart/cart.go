package cart

import (
	"github.com/shopspring/decimal"
)

// Line is one row of the shopping cart.
type Line struct {
	ItemID    int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	Name      string
	Image     string
}

// Amount returns unit price × quantity.
func (l Line) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered set of lines, unique by ItemID, in server order.
type Cart struct {
	Items []Line

	// Totals as reported by the backend. Informational only; DeriveTotals is
	// the source for anything displayed.
	ReportedTotal      decimal.Decimal
	ReportedGrandTotal decimal.Decimal
}

// Len returns the number of lines.
func (c Cart) Len() int {
	return len(c.Items)
}

// Index returns the position of itemID or -1.
func (c Cart) Index(itemID int64) int {
	for i, line := range c.Items {
		if line.ItemID == itemID {
			return i
		}
	}
	return -1
}

// Line returns the line for itemID.
func (c Cart) Line(itemID int64) (Line, bool) {
	idx := c.Index(itemID)
	if idx < 0 {
		return Line{}, false
	}
	return c.Items[idx], true
}

// IDs lists item ids in cart order.
func (c Cart) IDs() []int64 {
	if len(c.Items) == 0 {
		return nil
	}
	ids := make([]int64, len(c.Items))
	for i, line := range c.Items {
		ids[i] = line.ItemID
	}
	return ids
}

// Clone returns a copy that shares no slice storage with c.
func (c Cart) Clone() Cart {
	dup := c
	dup.Items = cloneLines(c.Items)
	return dup
}

// WithQuantity returns a copy of c with the quantity of itemID replaced.
// The second result is false when the item is not present.
func (c Cart) WithQuantity(itemID int64, quantity int) (Cart, bool) {
	idx := c.Index(itemID)
	if idx < 0 {
		return c, false
	}
	dup := c.Clone()
	dup.Items[idx].Quantity = quantity
	return dup, true
}

// Without returns a copy of c with itemID removed, along with the removed line
// and the position it occupied.
func (c Cart) Without(itemID int64) (Cart, Line, int, bool) {
	idx := c.Index(itemID)
	if idx < 0 {
		return c, Line{}, -1, false
	}
	removed := c.Items[idx]
	dup := c
	dup.Items = make([]Line, 0, len(c.Items)-1)
	dup.Items = append(dup.Items, c.Items[:idx]...)
	dup.Items = append(dup.Items, c.Items[idx+1:]...)
	return dup, removed, idx, true
}

// Inserted returns a copy of c with line placed at position idx. Positions
// past the end append.
func (c Cart) Inserted(idx int, line Line) Cart {
	if idx < 0 {
		idx = 0
	}
	if idx > len(c.Items) {
		idx = len(c.Items)
	}
	dup := c
	dup.Items = make([]Line, 0, len(c.Items)+1)
	dup.Items = append(dup.Items, c.Items[:idx]...)
	dup.Items = append(dup.Items, line)
	dup.Items = append(dup.Items, c.Items[idx:]...)
	return dup
}

func cloneLines(items []Line) []Line {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Line, len(items))
	copy(dup, items)
	return dup
}
