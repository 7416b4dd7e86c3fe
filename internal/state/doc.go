// Package state provides thread-safe state sharing between the cart engine
// and the UI.
//
// # Overview
//
// The Store holds the latest cartsync.View together with the notices and
// login state the UI needs to render. The engine pushes views through a
// subscription and reports failures through the Store's Notifier methods;
// the UI reads snapshots on its own refresh tick.
//
//	Producer (Engine):             Consumer (UI):
//	┌──────────────────┐          ┌──────────────────┐
//	│ Subscribe(Update)│          │                  │
//	│ Notify(notice)   │─────────→│ store.Snapshot() │
//	│ RequireLogin()   │ (mutex)  │      ↓           │
//	└──────────────────┘          │  render page     │
//	                              └──────────────────┘
//
// # Update Semantics
//
//   - A ready view marks the cart as loaded, clears NeedsLogin and resets
//     the failure counter.
//   - A failed view keeps HasCart so the last good cart can still be shown.
//   - An unauthenticated view, or RequireLogin, sets NeedsLogin.
//   - Notify appends to a ring of the last MaxNotices notices. Fetch
//     failures also bump ConsecutiveFailures.
//
// # Defensive Copying
//
// Snapshot clones the cart lines, id slices, notices and the load error so
// the UI can never mutate what the engine publishes.
//
// # Testing Considerations
//
// The zero Store is ready to use:
//
//	var store state.Store
//	store.Update(view)
//	snap := store.Snapshot()
package state
