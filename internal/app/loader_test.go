package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/five82/trolley/internal/apperr"
	"github.com/five82/trolley/internal/logger"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type scriptedLoader struct {
	errs  []error
	calls int
}

func (s *scriptedLoader) FetchCart(context.Context) error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func newTestLoader(cart cartLoader, attempts int) (*loader, *[]time.Duration) {
	var waits []time.Duration
	l := newLoader(cart, logger.Nop(), attempts)
	l.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return l, &waits
}

func TestLoader_RetriesRetryableFailures(t *testing.T) {
	network := apperr.New(apperr.CodeNetworkFailure, "refused")
	cart := &scriptedLoader{errs: []error{network, network}}
	l, waits := newTestLoader(cart, 3)

	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cart.calls != 3 {
		t.Fatalf("calls = %d, want 3", cart.calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*waits) != len(want) || (*waits)[0] != want[0] || (*waits)[1] != want[1] {
		t.Fatalf("waits = %v, want %v", *waits, want)
	}
}

func TestLoader_GivesUpAfterAttempts(t *testing.T) {
	network := apperr.New(apperr.CodeNetworkFailure, "refused")
	cart := &scriptedLoader{errs: []error{network, network, network, network}}
	l, _ := newTestLoader(cart, 3)

	err := l.Load(context.Background())
	if !errors.Is(err, network) {
		t.Fatalf("Load error = %v, want wrapped network failure", err)
	}
	if cart.calls != 3 {
		t.Fatalf("calls = %d, want 3", cart.calls)
	}
}

func TestLoader_StopsOnNonRetryable(t *testing.T) {
	for _, code := range []apperr.Code{apperr.CodeUnauthenticated, apperr.CodeServerRejected} {
		cart := &scriptedLoader{errs: []error{apperr.New(code, "no")}}
		l, waits := newTestLoader(cart, 5)

		if err := l.Load(context.Background()); !apperr.Is(err, code) {
			t.Fatalf("Load error = %v, want %s", err, code)
		}
		if cart.calls != 1 || len(*waits) != 0 {
			t.Fatalf("%s: calls = %d waits = %v, want a single attempt", code, cart.calls, *waits)
		}
	}
}

func TestLoader_CancelledWhileWaiting(t *testing.T) {
	cart := &scriptedLoader{errs: []error{apperr.New(apperr.CodeNetworkFailure, "x")}}
	l := newLoader(cart, logger.Nop(), 3)
	l.base = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load error = %v, want context.Canceled", err)
	}
}
