// Package config loads trolley's startup configuration.
//
// # Overview
//
// Configuration comes from a TOML file and is then overridden by TROLLEY_*
// environment variables. A missing file is not an error; defaults are used so
// trolley runs against a local backend without any setup.
//
// # Resolution Order
//
//  1. Defaults (see below)
//  2. The TOML file at the given path, or ~/.config/trolley/config.toml
//  3. Environment overrides, e.g. TROLLEY_API_BASE or TROLLEY_DEBOUNCE
//
// Empty strings in the file keep the default. Environment variables that are
// set always win, even when empty.
//
// # Default Values
//
//   - api_base: http://127.0.0.1:8000/api
//   - request_timeout: 10s
//   - debounce: 500ms
//   - tax_rate: 0 (use "0.11" for the legacy 11% surcharge)
//   - credential_backend: file
//   - credentials_path: ~/.config/trolley/credentials.toml
//   - log_dir: ~/.local/share/trolley
//   - log_level: info
//   - fetch_retries: 3
//   - breaker_failures: 5 (0 disables the circuit breaker)
//   - breaker_cooldown: 15s
//
// # TOML Format
//
//	api_base = "https://shop.example/api"
//	request_timeout = "10s"
//	debounce = "500ms"
//	tax_rate = "0"
//	notify_quantity_errors = false
//	credential_backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//	log_dir = "~/.local/share/trolley"
//	log_level = "debug"
//	metrics_addr = "127.0.0.1:9464"
//	fetch_retries = 3
//	breaker_failures = 5
//	breaker_cooldown = "15s"
//
// # Error Handling
//
// Load returns errors for unreadable files, TOML syntax errors, malformed
// durations or decimals, and settings rejected by Validate.
package config
