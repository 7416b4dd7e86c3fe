// Package app provides the orchestration layer for trolley.
//
// # Overview
//
// This package wires together configuration, logging, credentials, the HTTP
// client, the cart sync engine, shared state and the UI. It is the
// composition root: every dependency is built here and handed down
// explicitly, so no package below reaches for globals.
//
// # Startup
//
//  1. Load ~/.config/trolley/config.toml and TROLLEY_* overrides
//  2. Open the log file (the TUI owns the terminal) and build the logger
//  3. Load UI preferences
//  4. Register engine metrics and, when metrics_addr is set, serve them
//  5. Open the configured credential store (file, redis or env)
//  6. Build the API client behind a circuit breaker (breaker_failures,
//     breaker_cooldown) and the cartsync.Engine, with state.Store as both
//     its subscriber and its Notifier
//  7. Start the initial load in the background and run the UI
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Read config + env
//	       ├─────> openCredentials()    Token store
//	       ├─────> cartsync.New()       Engine
//	       ├─────> engine.Subscribe()   Views into state.Store
//	       ├─────> loader.Start()       Initial fetch with backoff
//	       └─────> ui.Run()             Start TUI (blocks)
//
// # Initial Load
//
// The loader calls FetchCart up to fetch_retries times. Only retryable
// failures (network errors, malformed responses) are retried, with
// exponential backoff starting at one second and capped at 30 seconds. A
// missing or expired token stops the loop at once; the UI then shows its
// login prompt. Later reloads are user driven (the r key).
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Invalid configuration
//   - Log file or credential store cannot be opened
//   - API client or engine construction failure
//
// Recoverable errors are logged and surfaced in the UI instead.
package app
