package cartsync

import (
	"github.com/five82/trolley/internal/cart"
)

// Status describes the load state of the cart snapshot.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Pending tracks the unsettled quantity change for one line.
type Pending struct {
	Target    int
	Sent      int
	InFlight  bool
	Scheduled bool
	// Confirmed is the last quantity the server is known to hold. The
	// line falls back to it when the change is dropped.
	Confirmed int
}

// Removal is the pre-mutation record kept while a DELETE is outstanding.
type Removal struct {
	Line cart.Line
	// Before and After list the ids around the line at removal time.
	Before []int64
	After  []int64
}

// State is everything the reducer owns. Values are treated as immutable;
// Reduce returns fresh maps whenever it changes them.
type State struct {
	Cart       cart.Cart
	Pending    map[int64]Pending
	Removals   map[int64]Removal
	Status     Status
	LoadErr    error
	Fetching   bool
	Generation uint64
	// Reconciling is set while a failed change still awaits a successful
	// fetch; FetchRetries counts the failed attempts since.
	Reconciling  bool
	FetchRetries int
}

// Action is an input to Reduce.
type Action interface {
	isAction()
}

// QuantityChanged records a user request to set a line's quantity.
type QuantityChanged struct {
	ItemID   int64
	Quantity int
}

// DebounceElapsed fires when a line's quiet window closes.
type DebounceElapsed struct {
	ItemID     int64
	Generation uint64
}

type PatchSucceeded struct {
	ItemID     int64
	Quantity   int
	Generation uint64
}

type PatchFailed struct {
	ItemID     int64
	Quantity   int
	Generation uint64
	Err        error
}

// ItemRemoved records a user request to delete a line.
type ItemRemoved struct {
	ItemID int64
}

type RemoveSucceeded struct {
	ItemID int64
}

type RemoveFailed struct {
	ItemID int64
	Err    error
}

type FetchStarted struct{}

type FetchSucceeded struct {
	Cart cart.Cart
}

type FetchFailed struct {
	Err error
}

func (QuantityChanged) isAction() {}
func (DebounceElapsed) isAction() {}
func (PatchSucceeded) isAction()  {}
func (PatchFailed) isAction()     {}
func (ItemRemoved) isAction()     {}
func (RemoveSucceeded) isAction() {}
func (RemoveFailed) isAction()    {}
func (FetchStarted) isAction()    {}
func (FetchSucceeded) isAction()  {}
func (FetchFailed) isAction()     {}

// Effect is a side effect requested by Reduce and carried out by the Engine.
type Effect interface {
	isEffect()
}

// ScheduleFlush arms, or re-arms, the debounce timer for a line.
type ScheduleFlush struct {
	ItemID int64
}

type CancelFlush struct {
	ItemID int64
}

type CancelAllFlushes struct{}

// SendPatch issues PATCH /cart/{id} with the given quantity.
type SendPatch struct {
	ItemID     int64
	Quantity   int
	Generation uint64
}

// SendDelete issues DELETE /cart/{id}.
type SendDelete struct {
	ItemID int64
}

// Refetch reloads the authoritative cart.
type Refetch struct{}

// RetryFetch schedules another reconciling fetch after a backoff that grows
// with Attempt.
type RetryFetch struct {
	Attempt int
}

type Notify struct {
	Notice Notice
}

type RequireLogin struct{}

// Coalesced marks a change folded into an existing pending mutation.
type Coalesced struct {
	ItemID int64
}

// RolledBack marks an optimistic change being undone.
type RolledBack struct {
	ItemID int64
	Kind   string
}

func (ScheduleFlush) isEffect()    {}
func (CancelFlush) isEffect()      {}
func (CancelAllFlushes) isEffect() {}
func (SendPatch) isEffect()        {}
func (SendDelete) isEffect()       {}
func (Refetch) isEffect()          {}
func (RetryFetch) isEffect()       {}
func (Notify) isEffect()           {}
func (RequireLogin) isEffect()     {}
func (Coalesced) isEffect()        {}
func (RolledBack) isEffect()       {}
