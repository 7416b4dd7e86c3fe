package cartsync

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/trolley/internal/apperr"
	"github.com/five82/trolley/internal/cart"
	"github.com/five82/trolley/internal/metrics"
)

func line(id int64, qty int, price string) cart.Line {
	return cart.Line{ItemID: id, ProductID: id * 100, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func readyState(lines ...cart.Line) State {
	return State{Cart: cart.Cart{Items: lines}, Status: StatusReady, Generation: 1}
}

func reduceAll(t *testing.T, s State, actions ...Action) (State, []Effect) {
	t.Helper()
	var all []Effect
	for _, a := range actions {
		var effects []Effect
		s, effects = Reduce(s, a)
		all = append(all, effects...)
	}
	return s, all
}

func TestReduceQuantityChangedIgnoresInvalidRequests(t *testing.T) {
	base := readyState(line(1, 2, "100"))

	tests := []struct {
		name   string
		action QuantityChanged
	}{
		{name: "zero", action: QuantityChanged{ItemID: 1, Quantity: 0}},
		{name: "negative", action: QuantityChanged{ItemID: 1, Quantity: -1}},
		{name: "unknown item", action: QuantityChanged{ItemID: 9, Quantity: 3}},
		{name: "unchanged", action: QuantityChanged{ItemID: 1, Quantity: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, effects := Reduce(base, tt.action)
			assert.Empty(t, effects)
			assert.Equal(t, base, next)
		})
	}
}

func TestReduceQuantityChangedIsOptimisticAndCoalesces(t *testing.T) {
	s := readyState(line(1, 1, "55000"))

	s, effects := Reduce(s, QuantityChanged{ItemID: 1, Quantity: 2})
	assert.Equal(t, []Effect{ScheduleFlush{ItemID: 1}}, effects)
	assert.Equal(t, 2, s.Cart.Items[0].Quantity)

	s, effects = Reduce(s, QuantityChanged{ItemID: 1, Quantity: 3})
	assert.Equal(t, []Effect{Coalesced{ItemID: 1}, ScheduleFlush{ItemID: 1}}, effects)
	assert.Equal(t, Pending{Target: 3, Scheduled: true, Confirmed: 1}, s.Pending[1])

	s, effects = Reduce(s, DebounceElapsed{ItemID: 1, Generation: 1})
	assert.Equal(t, []Effect{SendPatch{ItemID: 1, Quantity: 3, Generation: 1}}, effects)
	assert.Equal(t, Pending{Target: 3, Sent: 3, InFlight: true, Confirmed: 1}, s.Pending[1])

	s, effects = Reduce(s, PatchSucceeded{ItemID: 1, Quantity: 3, Generation: 1})
	assert.Empty(t, effects)
	assert.Empty(t, s.Pending)
	assert.Equal(t, 3, s.Cart.Items[0].Quantity)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	base := readyState(line(1, 1, "10"), line(2, 1, "20"))

	_, _ = reduceAll(t, base,
		QuantityChanged{ItemID: 1, Quantity: 5},
		ItemRemoved{ItemID: 2},
	)
	next, _ := Reduce(base, QuantityChanged{ItemID: 1, Quantity: 5})
	_, _ = Reduce(next, QuantityChanged{ItemID: 1, Quantity: 6})

	assert.Equal(t, 1, base.Cart.Items[0].Quantity)
	assert.Len(t, base.Cart.Items, 2)
	assert.Nil(t, base.Pending)
	assert.Nil(t, base.Removals)
	assert.Equal(t, 5, next.Pending[1].Target)
}

func TestReduceChangeWhileInFlightSendsFollowUp(t *testing.T) {
	s, _ := reduceAll(t, readyState(line(1, 1, "10")),
		QuantityChanged{ItemID: 1, Quantity: 2},
		DebounceElapsed{ItemID: 1, Generation: 1},
	)

	s, effects := Reduce(s, QuantityChanged{ItemID: 1, Quantity: 5})
	assert.Equal(t, []Effect{Coalesced{ItemID: 1}}, effects, "no timer while a request is on the wire")
	assert.Equal(t, Pending{Target: 5, Sent: 2, InFlight: true, Confirmed: 1}, s.Pending[1])

	s, effects = Reduce(s, PatchSucceeded{ItemID: 1, Quantity: 2, Generation: 1})
	assert.Equal(t, []Effect{ScheduleFlush{ItemID: 1}}, effects)
	assert.Equal(t, Pending{Target: 5, Sent: 2, Scheduled: true, Confirmed: 2}, s.Pending[1])
	assert.Equal(t, 5, s.Cart.Items[0].Quantity)

	_, effects = Reduce(s, DebounceElapsed{ItemID: 1, Generation: 1})
	assert.Equal(t, []Effect{SendPatch{ItemID: 1, Quantity: 5, Generation: 1}}, effects)
}

func TestReduceIgnoresStaleGeneration(t *testing.T) {
	s, _ := reduceAll(t, readyState(line(1, 1, "10")),
		QuantityChanged{ItemID: 1, Quantity: 2},
		DebounceElapsed{ItemID: 1, Generation: 1},
		FetchStarted{},
		FetchSucceeded{Cart: cart.Cart{Items: []cart.Line{line(1, 7, "10")}}},
	)
	require.Equal(t, uint64(3), s.Generation)

	for _, a := range []Action{
		DebounceElapsed{ItemID: 1, Generation: 1},
		PatchSucceeded{ItemID: 1, Quantity: 2, Generation: 1},
		PatchFailed{ItemID: 1, Quantity: 2, Generation: 1, Err: errors.New("boom")},
	} {
		next, effects := Reduce(s, a)
		assert.Empty(t, effects, "%T", a)
		assert.Equal(t, s, next, "%T", a)
	}
	assert.Equal(t, 7, s.Cart.Items[0].Quantity)
}

func TestReducePatchFailedReconciles(t *testing.T) {
	s, _ := reduceAll(t, readyState(line(1, 1, "10")),
		QuantityChanged{ItemID: 1, Quantity: 4},
		DebounceElapsed{ItemID: 1, Generation: 1},
	)
	err := apperr.New(apperr.CodeServerRejected, "out of stock")

	s, effects := Reduce(s, PatchFailed{ItemID: 1, Quantity: 4, Generation: 1, Err: err})

	assert.Empty(t, s.Pending)
	assert.Equal(t, 1, s.Cart.Items[0].Quantity, "rejected value is dropped before the refetch")
	assert.True(t, s.Reconciling)
	require.Len(t, effects, 3)
	assert.Equal(t, RolledBack{ItemID: 1, Kind: metrics.RollbackRefetch}, effects[0])
	notice := effects[1].(Notify).Notice
	assert.True(t, notice.Quiet)
	assert.Equal(t, OpQuantity, notice.Op)
	assert.Equal(t, Refetch{}, effects[2])
}

func TestReducePatchFailedUnauthenticated(t *testing.T) {
	s, _ := reduceAll(t, readyState(line(1, 1, "10")),
		QuantityChanged{ItemID: 1, Quantity: 4},
		DebounceElapsed{ItemID: 1, Generation: 1},
	)

	s, effects := Reduce(s, PatchFailed{
		ItemID: 1, Quantity: 4, Generation: 1,
		Err: apperr.New(apperr.CodeUnauthenticated, "no token"),
	})

	assert.Equal(t, []Effect{RequireLogin{}}, effects)
	assert.Empty(t, s.Pending)
	assert.Equal(t, StatusUnauthenticated, s.Status)
	assert.Equal(t, 1, s.Cart.Items[0].Quantity)
	assert.False(t, s.Reconciling)
}

func TestReducePatchFailedRestoresLastConfirmedQuantity(t *testing.T) {
	// 1 -> 2 is accepted, then 2 -> 6 is rejected: the line falls back to 2.
	s, _ := reduceAll(t, readyState(line(1, 1, "10")),
		QuantityChanged{ItemID: 1, Quantity: 2},
		DebounceElapsed{ItemID: 1, Generation: 1},
		QuantityChanged{ItemID: 1, Quantity: 6},
		PatchSucceeded{ItemID: 1, Quantity: 2, Generation: 1},
		DebounceElapsed{ItemID: 1, Generation: 1},
	)
	require.Equal(t, 6, s.Cart.Items[0].Quantity)

	s, _ = Reduce(s, PatchFailed{ItemID: 1, Quantity: 6, Generation: 1, Err: errors.New("boom")})
	assert.Equal(t, 2, s.Cart.Items[0].Quantity)
}

func TestReduceFailedReconciliationSchedulesRetry(t *testing.T) {
	s, _ := reduceAll(t, readyState(line(1, 2, "10")),
		QuantityChanged{ItemID: 1, Quantity: 5},
		DebounceElapsed{ItemID: 1, Generation: 1},
		PatchFailed{ItemID: 1, Quantity: 5, Generation: 1, Err: errors.New("boom")},
	)
	down := apperr.New(apperr.CodeNetworkFailure, "down")

	for attempt := 1; attempt <= 2; attempt++ {
		var effects []Effect
		s, effects = reduceAll(t, s, FetchStarted{}, FetchFailed{Err: down})
		require.Len(t, effects, 2)
		assert.Equal(t, RetryFetch{Attempt: attempt}, effects[1])
		assert.Equal(t, 2, s.Cart.Items[0].Quantity)
		assert.Equal(t, StatusFailed, s.Status)
	}

	s, effects := reduceAll(t, s,
		FetchStarted{},
		FetchSucceeded{Cart: cart.Cart{Items: []cart.Line{line(1, 3, "10")}}},
	)
	assert.Empty(t, effects)
	assert.False(t, s.Reconciling)
	assert.Zero(t, s.FetchRetries)
	assert.Equal(t, 3, s.Cart.Items[0].Quantity)

	// An ordinary failed fetch does not retry on its own.
	_, effects = reduceAll(t, s, FetchStarted{}, FetchFailed{Err: down})
	require.Len(t, effects, 1)
	assert.IsType(t, Notify{}, effects[0])
}

func TestReduceRemoveCancelsPendingDebounce(t *testing.T) {
	s, _ := reduceAll(t, readyState(line(1, 1, "10"), line(2, 1, "20")),
		QuantityChanged{ItemID: 2, Quantity: 3},
	)

	s, effects := Reduce(s, ItemRemoved{ItemID: 2})

	assert.Equal(t, []Effect{CancelFlush{ItemID: 2}, SendDelete{ItemID: 2}}, effects)
	assert.Equal(t, []int64{1}, s.Cart.IDs())
	assert.Empty(t, s.Pending)
	assert.Equal(t, []int64{1}, s.Removals[2].Before)
}

func TestReduceRemoveAbsentIsNoop(t *testing.T) {
	base := readyState(line(1, 1, "10"))
	next, effects := Reduce(base, ItemRemoved{ItemID: 42})
	assert.Empty(t, effects)
	assert.Equal(t, base, next)
}

func TestReduceRemoveFailedRestoresOrder(t *testing.T) {
	a, b, c := line(1, 1, "10"), line(2, 3, "20"), line(3, 1, "30")
	fail := apperr.New(apperr.CodeNetworkFailure, "timeout")

	tests := []struct {
		name    string
		actions []Action
		want    []int64
	}{
		{
			name:    "single",
			actions: []Action{ItemRemoved{ItemID: 2}, RemoveFailed{ItemID: 2, Err: fail}},
			want:    []int64{1, 2, 3},
		},
		{
			name: "two removals fail in order",
			actions: []Action{
				ItemRemoved{ItemID: 1}, ItemRemoved{ItemID: 2},
				RemoveFailed{ItemID: 1, Err: fail}, RemoveFailed{ItemID: 2, Err: fail},
			},
			want: []int64{1, 2, 3},
		},
		{
			name: "two removals fail in reverse order",
			actions: []Action{
				ItemRemoved{ItemID: 1}, ItemRemoved{ItemID: 2},
				RemoveFailed{ItemID: 2, Err: fail}, RemoveFailed{ItemID: 1, Err: fail},
			},
			want: []int64{1, 2, 3},
		},
		{
			name: "neighbour removed for good",
			actions: []Action{
				ItemRemoved{ItemID: 2}, ItemRemoved{ItemID: 3},
				RemoveSucceeded{ItemID: 3}, RemoveFailed{ItemID: 2, Err: fail},
			},
			want: []int64{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := reduceAll(t, readyState(a, b, c), tt.actions...)
			assert.Equal(t, tt.want, s.Cart.IDs())
			assert.Empty(t, s.Removals)
			restored, ok := s.Cart.Line(2)
			require.True(t, ok)
			assert.Equal(t, b, restored)
		})
	}
}

func TestReduceRemoveFailedEffects(t *testing.T) {
	s, _ := reduceAll(t, readyState(line(1, 1, "10")), ItemRemoved{ItemID: 1})

	_, effects := Reduce(s, RemoveFailed{ItemID: 1, Err: apperr.New(apperr.CodeServerRejected, "nope")})
	require.Len(t, effects, 2)
	assert.Equal(t, RolledBack{ItemID: 1, Kind: metrics.RollbackSnapshot}, effects[0])
	notice := effects[1].(Notify).Notice
	assert.Equal(t, OpRemove, notice.Op)
	assert.False(t, notice.Quiet)

	s2, effects := Reduce(s, RemoveFailed{ItemID: 1, Err: apperr.New(apperr.CodeUnauthenticated, "expired")})
	assert.Equal(t, []Effect{RequireLogin{}}, effects)
	assert.Equal(t, []int64{1}, s2.Cart.IDs(), "restored silently")
}

func TestReduceRemoveFailedSkipsRestoreWhenPresent(t *testing.T) {
	s, _ := reduceAll(t, readyState(line(1, 1, "10"), line(2, 1, "20")), ItemRemoved{ItemID: 2})
	// A fetch that raced the delete cannot reintroduce the line.
	s, _ = reduceAll(t, s, FetchStarted{}, FetchSucceeded{Cart: cart.Cart{Items: []cart.Line{line(1, 1, "10"), line(2, 9, "20")}}})
	assert.Equal(t, []int64{1}, s.Cart.IDs())

	s.Cart = s.Cart.Inserted(1, line(2, 9, "20"))
	s, _ = Reduce(s, RemoveFailed{ItemID: 2, Err: errors.New("boom")})
	assert.Equal(t, []int64{1, 2}, s.Cart.IDs())
	assert.Equal(t, 9, s.Cart.Items[1].Quantity)
}

func TestReduceFetchLifecycle(t *testing.T) {
	s := State{}

	s, effects := Reduce(s, FetchStarted{})
	assert.Empty(t, effects)
	assert.Equal(t, StatusLoading, s.Status)
	assert.True(t, s.Fetching)

	failure := apperr.New(apperr.CodeNetworkFailure, "down")
	s, effects = Reduce(s, FetchFailed{Err: failure})
	assert.Equal(t, StatusFailed, s.Status)
	assert.Equal(t, failure, s.LoadErr)
	require.Len(t, effects, 1)
	assert.True(t, effects[0].(Notify).Notice.Blocking)

	s, _ = Reduce(s, FetchStarted{})
	s, effects = Reduce(s, FetchSucceeded{Cart: cart.Cart{Items: []cart.Line{line(1, 2, "10")}}})
	assert.Empty(t, effects)
	assert.Equal(t, StatusReady, s.Status)
	assert.NoError(t, s.LoadErr)
	assert.False(t, s.Fetching)

	s, _ = Reduce(s, QuantityChanged{ItemID: 1, Quantity: 3})
	s, effects = Reduce(s, FetchStarted{})
	assert.Equal(t, []Effect{CancelAllFlushes{}}, effects)
	assert.Equal(t, StatusReady, s.Status, "a refresh keeps the loaded cart visible")
	assert.Empty(t, s.Pending)
	assert.Equal(t, 2, s.Cart.Items[0].Quantity, "unsent change is dropped")

	_, effects = Reduce(s, FetchFailed{Err: apperr.New(apperr.CodeUnauthenticated, "x")})
	assert.Equal(t, []Effect{RequireLogin{}}, effects)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ready", StatusReady.String())
	assert.Equal(t, "unauthenticated", StatusUnauthenticated.String())
	assert.Equal(t, "unknown", Status(99).String())
}
