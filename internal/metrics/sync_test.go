package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSyncMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.ObserveRequest("patch", 20*time.Millisecond, nil)
	m.ObserveRequest("patch", 30*time.Millisecond, errors.New("boom"))
	m.ObserveRequest("", time.Millisecond, nil)
	m.IncCoalesced()
	m.IncCoalesced()
	m.IncRollback(RollbackSnapshot)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("patch", "ok")); got != 1 {
		t.Fatalf("patch ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("patch", "error")); got != 1 {
		t.Fatalf("patch error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("unknown", "ok")); got != 1 {
		t.Fatalf("unknown op = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.coalesced); got != 2 {
		t.Fatalf("coalesced = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rollbacks.WithLabelValues(RollbackSnapshot)); got != 1 {
		t.Fatalf("snapshot rollbacks = %v, want 1", got)
	}
}

func TestSyncMetrics_NilSafe(t *testing.T) {
	var nilMetrics *SyncMetrics
	nilMetrics.ObserveRequest("fetch", time.Second, nil)
	nilMetrics.IncCoalesced()
	nilMetrics.IncRollback(RollbackRefetch)

	unregistered := NewSyncMetrics(nil)
	unregistered.ObserveRequest("fetch", time.Second, nil)
	unregistered.IncCoalesced()
	unregistered.IncRollback(RollbackRefetch)
}
