// Package ui provides the terminal cart page for trolley.
//
// # Architecture Overview
//
// The UI is a single Bubble Tea program. It never talks to the backend
// itself: quantity and removal keys call into a CartEngine, which applies the
// change locally and syncs it in the background. The page renders whatever
// state.Store holds, polling a snapshot on every tick and right after each
// key press so optimistic changes show up immediately.
//
// # Package Structure
//
//   - app.go: Model, Options, key handling, tick/snapshot commands, Run
//   - cart_view.go: cart table, totals, error and login pages, boxes
//   - header.go: status bar, command bar, notice bar
//   - logs.go: recent-log pane backed by logtail and a viewport
//   - modal.go: Modal interface and the remove confirmation dialog
//   - help.go: keyboard shortcut overlay
//   - theme.go, bar.go: colors, lipgloss styles, solid-background bars
//
// # Screens
//
//   - Cart: one row per line with unit price, quantity, amount and a
//     "syncing" marker while a change is unsettled; totals below
//   - Error page: shown when the first load fails, with a retry key
//   - Login prompt: shown when the backend reports the session expired
//   - Notice bar: the latest failure notice, dismissed with esc
//
// # Key Bindings
//
//   - +/-: Increase or decrease the selected quantity
//   - d: Remove the selected line (asks first when confirm_remove is set)
//   - r: Reload the cart from the server
//   - j/k, g/G: Move the selection
//   - l: Toggle the log pane
//   - T: Cycle theme (saved to prefs)
//   - h/?: Toggle help
//   - q or Ctrl+C: Quit
//
// # Usage Example
//
//	err := ui.Run(ui.Options{
//		Context:       ctx,
//		Engine:        engine,
//		Store:         store,
//		LogPath:       cfg.LogPath(),
//		ThemeName:     p.Theme,
//		ConfirmRemove: p.ConfirmRemove,
//	})
package ui
