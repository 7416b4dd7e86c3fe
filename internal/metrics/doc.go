// Package metrics exposes Prometheus instruments for cart synchronization.
// All methods are nil-safe so callers can run without a registry. Router and
// Serve publish a registry on an optional /metrics endpoint.
package metrics
