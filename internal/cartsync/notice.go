package cartsync

import (
	"github.com/five82/trolley/internal/apperr"
)

// Op names the user-facing operation a notice relates to.
type Op string

const (
	OpQuantity Op = "quantity"
	OpRemove   Op = "remove"
	OpFetch    Op = "fetch"
)

// Notice is a user-facing report of a failed operation.
type Notice struct {
	Op     Op
	ItemID int64
	Err    error
	// Blocking notices replace the cart view until the next successful load.
	Blocking bool
	// Quiet notices describe failures already healed by a refetch.
	Quiet bool
}

// Message returns the text shown to the user.
func (n Notice) Message() string {
	switch n.Op {
	case OpRemove:
		return "Could not remove item: " + apperr.PublicMessage(n.Err)
	case OpQuantity:
		return "Could not update quantity: " + apperr.PublicMessage(n.Err)
	case OpFetch:
		return "Could not load cart: " + apperr.PublicMessage(n.Err)
	default:
		return apperr.PublicMessage(n.Err)
	}
}

// Notifier receives user-facing failures and login redirects.
type Notifier interface {
	Notify(Notice)
	RequireLogin()
}

// NopNotifier drops everything.
type NopNotifier struct{}

func (NopNotifier) Notify(Notice) {}
func (NopNotifier) RequireLogin() {}
