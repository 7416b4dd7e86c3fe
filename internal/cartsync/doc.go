// Package cartsync keeps the local cart in step with the storefront backend.
//
// # Overview
//
// The Engine owns the cart snapshot shown to the user. Every change is
// applied locally first and sent to the backend afterwards; when the backend
// disagrees the local state is repaired. Callers never wait on the network.
//
// # Architecture
//
// The package is split into a pure reducer and an effect runner:
//
//	SetQuantity / RemoveItem / FetchCart
//	             │
//	             ▼
//	┌──────────────────────────┐
//	│ Reduce(State, Action)    │  pure, no clocks, no I/O
//	└────────────┬─────────────┘
//	             │ (State, []Effect)
//	             ▼
//	┌──────────────────────────┐
//	│ Engine                   │  timers, HTTP calls, notifier
//	└────────────┬─────────────┘
//	             │ completion actions
//	             └──────────────► Reduce ...
//
// Dispatch is serialized by a mutex. Backend calls run on their own
// goroutines and report back by dispatching a completion action.
//
// # Quantity changes
//
// Each line moves through Settled → PendingDebounce → InFlight → Settled.
// A change during PendingDebounce resets the line's timer, so a burst of
// clicks produces one PATCH carrying the final value. A change while a
// request is in flight is recorded and sent as a follow-up once the first
// request completes. A failed PATCH discards the optimistic value and
// refetches the whole cart.
//
// # Removals
//
// RemoveItem drops the line locally, remembers which lines preceded it and
// sends the DELETE at once. If the DELETE fails the line is put back after
// its nearest surviving predecessor, and the user is told.
//
// # Fetching
//
// FetchCart replaces the snapshot wholesale and discards pending quantity
// changes. Concurrent fetches share one request through singleflight. Each
// fetch starts a new generation; completions from an older generation are
// ignored.
//
// # Authentication
//
// The bearer token is read from a TokenSource before every call. When it is
// missing or expired no request is made and Notifier.RequireLogin is called.
//
// # Testing
//
// ManualScheduler replaces wall-clock timers so debounce behaviour can be
// driven step by step with Advance.
package cartsync
