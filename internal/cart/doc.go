// Package cart holds the client-side shopping cart model.
//
// A Cart is an ordered list of Lines in the order the backend returned them.
// Lines are unique by ItemID, which identifies the cart row and stays stable
// across quantity changes; ProductID points at the catalogue entry and is
// read-only here.
//
// Cart values are treated as immutable snapshots. Mutating helpers
// (WithQuantity, Without, Inserted) return a new Cart and never touch the
// backing array of the receiver, so a snapshot handed to the UI cannot change
// underneath it.
//
// # Totals
//
// DeriveTotals is a pure function of the lines and a tax rate:
//
//	subtotal = Σ unit_price × quantity
//	tax      = subtotal × taxRate
//	total    = subtotal + tax
//
// The totals reported by the backend (total_amount, grand_total) are kept on
// the Cart for reference but are never displayed; totals are derived on every
// read so they always agree with the lines.
package cart
