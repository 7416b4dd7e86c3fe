package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rollback kinds.
const (
	RollbackRefetch  = "refetch"
	RollbackSnapshot = "snapshot"
)

// SyncMetrics records cart synchronization activity.
type SyncMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	coalesced prometheus.Counter
	rollbacks *prometheus.CounterVec
}

// NewSyncMetrics registers the cart sync metrics on reg. A nil registerer
// yields a SyncMetrics whose methods do nothing.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trolley_cart_requests_total",
		Help: "Cart backend requests by operation and outcome.",
	}, []string{"op", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trolley_cart_request_duration_seconds",
		Help:    "Cart backend request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	coalesced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trolley_cart_coalesced_mutations_total",
		Help: "Quantity changes folded into an already pending request.",
	})
	rollbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trolley_cart_rollbacks_total",
		Help: "Optimistic changes undone, by strategy.",
	}, []string{"kind"})
	reg.MustRegister(requests, latency, coalesced, rollbacks)
	return &SyncMetrics{
		requests:  requests,
		latency:   latency,
		coalesced: coalesced,
		rollbacks: rollbacks,
	}
}

// ObserveRequest records one finished backend call.
func (m *SyncMetrics) ObserveRequest(op string, duration time.Duration, err error) {
	if m == nil || m.requests == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	op = normalizeLabel(op)
	m.requests.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// IncCoalesced counts a quantity change absorbed by a pending mutation.
func (m *SyncMetrics) IncCoalesced() {
	if m == nil || m.coalesced == nil {
		return
	}
	m.coalesced.Inc()
}

// IncRollback counts an undone optimistic change.
func (m *SyncMetrics) IncRollback(kind string) {
	if m == nil || m.rollbacks == nil {
		return
	}
	m.rollbacks.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
