package cartsync

import (
	"github.com/five82/trolley/internal/apperr"
	"github.com/five82/trolley/internal/cart"
	"github.com/five82/trolley/internal/metrics"
)

// Reduce applies a to s and returns the next state plus the effects the
// engine must run. It performs no I/O and never mutates s.
func Reduce(s State, a Action) (State, []Effect) {
	switch a := a.(type) {
	case QuantityChanged:
		return reduceQuantityChanged(s, a)
	case DebounceElapsed:
		return reduceDebounceElapsed(s, a)
	case PatchSucceeded:
		return reducePatchSucceeded(s, a)
	case PatchFailed:
		return reducePatchFailed(s, a)
	case ItemRemoved:
		return reduceItemRemoved(s, a)
	case RemoveSucceeded:
		if _, ok := s.Removals[a.ItemID]; !ok {
			return s, nil
		}
		s.Removals = withoutRemoval(s.Removals, a.ItemID)
		return s, nil
	case RemoveFailed:
		return reduceRemoveFailed(s, a)
	case FetchStarted:
		return reduceFetchStarted(s)
	case FetchSucceeded:
		return reduceFetchSucceeded(s, a)
	case FetchFailed:
		return reduceFetchFailed(s, a)
	default:
		return s, nil
	}
}

func reduceQuantityChanged(s State, a QuantityChanged) (State, []Effect) {
	if a.Quantity < 1 {
		return s, nil
	}
	line, ok := s.Cart.Line(a.ItemID)
	if !ok {
		return s, nil
	}
	p, pending := s.Pending[a.ItemID]
	if !pending && line.Quantity == a.Quantity {
		return s, nil
	}
	if !pending {
		p.Confirmed = line.Quantity
	}

	s.Cart, _ = s.Cart.WithQuantity(a.ItemID, a.Quantity)

	var effects []Effect
	if pending && (p.Scheduled || p.InFlight) {
		effects = append(effects, Coalesced{ItemID: a.ItemID})
	}
	p.Target = a.Quantity
	if !p.InFlight {
		p.Scheduled = true
		effects = append(effects, ScheduleFlush{ItemID: a.ItemID})
	}
	s.Pending = withPending(s.Pending, a.ItemID, p)
	return s, effects
}

func reduceDebounceElapsed(s State, a DebounceElapsed) (State, []Effect) {
	if a.Generation != s.Generation {
		return s, nil
	}
	p, ok := s.Pending[a.ItemID]
	if !ok || p.InFlight || !p.Scheduled {
		return s, nil
	}
	p.Scheduled = false
	p.InFlight = true
	p.Sent = p.Target
	s.Pending = withPending(s.Pending, a.ItemID, p)
	return s, []Effect{SendPatch{ItemID: a.ItemID, Quantity: p.Sent, Generation: s.Generation}}
}

func reducePatchSucceeded(s State, a PatchSucceeded) (State, []Effect) {
	if a.Generation != s.Generation {
		return s, nil
	}
	p, ok := s.Pending[a.ItemID]
	if !ok || !p.InFlight {
		return s, nil
	}
	p.InFlight = false
	p.Confirmed = p.Sent
	if p.Target != p.Sent {
		p.Scheduled = true
		s.Pending = withPending(s.Pending, a.ItemID, p)
		return s, []Effect{ScheduleFlush{ItemID: a.ItemID}}
	}
	s.Pending = withoutPending(s.Pending, a.ItemID)
	return s, nil
}

func reducePatchFailed(s State, a PatchFailed) (State, []Effect) {
	if a.Generation != s.Generation {
		return s, nil
	}
	p, ok := s.Pending[a.ItemID]
	if !ok || !p.InFlight {
		return s, nil
	}
	s.Pending = withoutPending(s.Pending, a.ItemID)
	s.Cart, _ = s.Cart.WithQuantity(a.ItemID, p.Confirmed)

	if apperr.Is(a.Err, apperr.CodeUnauthenticated) {
		s.Status = StatusUnauthenticated
		return s, []Effect{RequireLogin{}}
	}
	s.Reconciling = true
	return s, []Effect{
		RolledBack{ItemID: a.ItemID, Kind: metrics.RollbackRefetch},
		Notify{Notice: Notice{Op: OpQuantity, ItemID: a.ItemID, Err: a.Err, Quiet: true}},
		Refetch{},
	}
}

func reduceItemRemoved(s State, a ItemRemoved) (State, []Effect) {
	ids := s.Cart.IDs()
	next, line, idx, ok := s.Cart.Without(a.ItemID)
	if !ok {
		return s, nil
	}
	s.Cart = next
	s.Removals = withRemoval(s.Removals, a.ItemID, Removal{
		Line:   line,
		Before: append([]int64(nil), ids[:idx]...),
		After:  append([]int64(nil), ids[idx+1:]...),
	})

	var effects []Effect
	if _, pending := s.Pending[a.ItemID]; pending {
		s.Pending = withoutPending(s.Pending, a.ItemID)
		effects = append(effects, CancelFlush{ItemID: a.ItemID})
	}
	return s, append(effects, SendDelete{ItemID: a.ItemID})
}

func reduceRemoveFailed(s State, a RemoveFailed) (State, []Effect) {
	r, ok := s.Removals[a.ItemID]
	if !ok {
		return s, nil
	}
	s.Removals = withoutRemoval(s.Removals, a.ItemID)
	if s.Cart.Index(a.ItemID) < 0 {
		s.Cart = s.Cart.Inserted(restoreIndex(s.Cart, r), r.Line)
	}

	if apperr.Is(a.Err, apperr.CodeUnauthenticated) {
		s.Status = StatusUnauthenticated
		return s, []Effect{RequireLogin{}}
	}
	return s, []Effect{
		RolledBack{ItemID: a.ItemID, Kind: metrics.RollbackSnapshot},
		Notify{Notice: Notice{Op: OpRemove, ItemID: a.ItemID, Err: a.Err}},
	}
}

// restoreIndex places a restored line directly after the nearest
// predecessor still in c, else directly before the nearest successor, else
// at the front.
func restoreIndex(c cart.Cart, r Removal) int {
	for i := len(r.Before) - 1; i >= 0; i-- {
		if idx := c.Index(r.Before[i]); idx >= 0 {
			return idx + 1
		}
	}
	for _, id := range r.After {
		if idx := c.Index(id); idx >= 0 {
			return idx
		}
	}
	return 0
}

// reduceFetchStarted drops unsent changes and shows the last confirmed
// quantities until the fetch settles.
func reduceFetchStarted(s State) (State, []Effect) {
	s.Fetching = true
	if s.Status != StatusReady {
		s.Status = StatusLoading
	}
	for id, p := range s.Pending {
		s.Cart, _ = s.Cart.WithQuantity(id, p.Confirmed)
	}
	return dropPending(s)
}

func reduceFetchSucceeded(s State, a FetchSucceeded) (State, []Effect) {
	fresh := a.Cart.Clone()
	for id := range s.Removals {
		fresh, _, _, _ = fresh.Without(id)
	}
	s.Cart = fresh
	s.Status = StatusReady
	s.LoadErr = nil
	s.Fetching = false
	s.Reconciling = false
	s.FetchRetries = 0
	return dropPending(s)
}

func reduceFetchFailed(s State, a FetchFailed) (State, []Effect) {
	s.Fetching = false
	s.LoadErr = a.Err
	if apperr.Is(a.Err, apperr.CodeUnauthenticated) {
		s.Status = StatusUnauthenticated
		s.Reconciling = false
		s.FetchRetries = 0
		return s, []Effect{RequireLogin{}}
	}
	s.Status = StatusFailed
	effects := []Effect{Notify{Notice: Notice{Op: OpFetch, Err: a.Err, Blocking: true}}}
	if s.Reconciling {
		s.FetchRetries++
		effects = append(effects, RetryFetch{Attempt: s.FetchRetries})
	}
	return s, effects
}

// dropPending discards every pending quantity change and starts a new
// generation so completions of requests already on the wire are ignored.
func dropPending(s State) (State, []Effect) {
	s.Generation++
	if len(s.Pending) == 0 {
		return s, nil
	}
	s.Pending = nil
	return s, []Effect{CancelAllFlushes{}}
}

func withPending(m map[int64]Pending, id int64, p Pending) map[int64]Pending {
	next := make(map[int64]Pending, len(m)+1)
	for k, v := range m {
		next[k] = v
	}
	next[id] = p
	return next
}

func withoutPending(m map[int64]Pending, id int64) map[int64]Pending {
	next := make(map[int64]Pending, len(m))
	for k, v := range m {
		if k != id {
			next[k] = v
		}
	}
	return next
}

func withRemoval(m map[int64]Removal, id int64, r Removal) map[int64]Removal {
	next := make(map[int64]Removal, len(m)+1)
	for k, v := range m {
		next[k] = v
	}
	next[id] = r
	return next
}

func withoutRemoval(m map[int64]Removal, id int64) map[int64]Removal {
	next := make(map[int64]Removal, len(m))
	for k, v := range m {
		if k != id {
			next[k] = v
		}
	}
	return next
}
