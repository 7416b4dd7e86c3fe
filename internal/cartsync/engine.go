package cartsync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/five82/trolley/internal/api"
	"github.com/five82/trolley/internal/cart"
	"github.com/five82/trolley/internal/logger"
	"github.com/five82/trolley/internal/metrics"
)

const (
	// DefaultDebounce is the quiet window before a quantity change is sent.
	DefaultDebounce = 500 * time.Millisecond
	// DefaultTimeout bounds every backend call.
	DefaultTimeout = 10 * time.Second

	fetchKey = "cart"

	// Reconciling fetches that fail are retried after retryBase, doubling
	// per attempt up to retryMax.
	retryBase = time.Second
	retryMax  = 30 * time.Second
)

// ErrClosed is returned by FetchCart once Close has been called.
var ErrClosed = errors.New("cartsync: engine closed")

// TokenSource supplies the bearer token read before every backend call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Options configures an Engine.
type Options struct {
	Backend     api.CartBackend
	Credentials TokenSource
	Notifier    Notifier
	Logger      *logger.Logger
	Metrics     *metrics.SyncMetrics
	Scheduler   Scheduler
	Debounce    time.Duration
	Timeout     time.Duration
	TaxRate     decimal.Decimal
	// NotifyQuantityErrors also reports quantity failures that a refetch
	// already healed.
	NotifyQuantityErrors bool
}

// View is a read-only snapshot of the engine state.
type View struct {
	Cart     cart.Cart
	Totals   cart.Totals
	Status   Status
	LoadErr  error
	Fetching bool
	// Reconciling is set while a rejected change waits for a successful
	// fetch of server state.
	Reconciling bool
	// Pending lists item ids with an unsettled quantity change.
	Pending []int64
	// Removing lists item ids with an outstanding delete.
	Removing []int64
	Version  uint64
}

// IsPending reports whether itemID has an unsettled quantity change.
func (v View) IsPending(itemID int64) bool {
	for _, id := range v.Pending {
		if id == itemID {
			return true
		}
	}
	return false
}

// Engine owns the local cart and keeps it in step with the backend.
type Engine struct {
	backend   api.CartBackend
	creds     TokenSource
	notifier  Notifier
	log       *logger.Logger
	metrics   *metrics.SyncMetrics
	scheduler Scheduler
	debounce  time.Duration
	timeout   time.Duration
	taxRate   decimal.Decimal
	notifyQty bool
	spawn     func(func())

	mu      sync.Mutex
	state   State
	version uint64
	timers  map[int64]*flushTimer
	retry   *flushTimer
	subs    map[int]func(View)
	nextSub int
	closed  bool

	pubMu     sync.Mutex
	published uint64

	fetches singleflight.Group
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

type flushTimer struct {
	timer Timer
}

// New validates opts and returns an idle Engine. Call FetchCart to load.
func New(opts Options) (*Engine, error) {
	if opts.Backend == nil {
		return nil, errors.New("cartsync: backend is required")
	}
	if opts.Credentials == nil {
		return nil, errors.New("cartsync: credentials are required")
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = realScheduler{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		backend:   opts.Backend,
		creds:     opts.Credentials,
		notifier:  opts.Notifier,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		scheduler: opts.Scheduler,
		debounce:  opts.Debounce,
		timeout:   opts.Timeout,
		taxRate:   opts.TaxRate,
		notifyQty: opts.NotifyQuantityErrors,
		timers:    make(map[int64]*flushTimer),
		subs:      make(map[int]func(View)),
		ctx:       ctx,
		cancel:    cancel,
	}
	e.spawn = e.goSpawn
	return e, nil
}

// SetQuantity optimistically sets the quantity of itemID and schedules the
// debounced PATCH. It reports false when the request was ignored because
// the quantity is below one or the item is not in the cart.
func (e *Engine) SetQuantity(itemID int64, quantity int) bool {
	return e.dispatchFrom(func(s State) (Action, bool) {
		if quantity < 1 || s.Cart.Index(itemID) < 0 {
			return nil, false
		}
		return QuantityChanged{ItemID: itemID, Quantity: quantity}, true
	})
}

// Increment raises the quantity of itemID by one.
func (e *Engine) Increment(itemID int64) bool {
	return e.adjust(itemID, 1)
}

// Decrement lowers the quantity of itemID by one, never below one.
func (e *Engine) Decrement(itemID int64) bool {
	return e.adjust(itemID, -1)
}

func (e *Engine) adjust(itemID int64, delta int) bool {
	return e.dispatchFrom(func(s State) (Action, bool) {
		line, found := s.Cart.Line(itemID)
		if !found || line.Quantity+delta < 1 {
			return nil, false
		}
		return QuantityChanged{ItemID: itemID, Quantity: line.Quantity + delta}, true
	})
}

// RemoveItem optimistically removes itemID and issues the DELETE at once.
// It reports false when the item is not in the cart.
func (e *Engine) RemoveItem(itemID int64) bool {
	return e.dispatchFrom(func(s State) (Action, bool) {
		if s.Cart.Index(itemID) < 0 {
			return nil, false
		}
		return ItemRemoved{ItemID: itemID}, true
	})
}

// FetchCart loads the authoritative cart and replaces the local snapshot.
// Concurrent calls share one request. ctx bounds only the wait.
func (e *Engine) FetchCart(ctx context.Context) error {
	ch := e.fetches.DoChan(fetchKey, func() (any, error) {
		if !e.track() {
			return nil, ErrClosed
		}
		defer e.wg.Done()
		return nil, e.fetch()
	})
	select {
	case res := <-ch:
		if res.Shared {
			e.log.Debug(ctx, "cart fetch shared with a concurrent caller")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh starts a fetch in the background.
func (e *Engine) Refresh() {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}
	e.spawn(func() {
		_ = e.FetchCart(e.ctx)
	})
}

// Snapshot returns the current view.
func (e *Engine) Snapshot() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// Subscribe calls fn with the current view and again after every change.
// Views reach fn in version order.
// fn runs on the goroutine that caused the change and must not call back
// into the engine synchronously. The returned func unsubscribes.
func (e *Engine) Subscribe(fn func(View)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	view := e.viewLocked()
	e.mu.Unlock()

	e.pubMu.Lock()
	if view.Version >= e.published {
		fn(view)
	}
	e.pubMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// Close stops all timers, cancels outstanding requests and waits for their
// goroutines to finish. Pending quantity changes are discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for id, t := range e.timers {
		t.timer.Stop()
		delete(e.timers, id)
	}
	if e.retry != nil {
		e.retry.timer.Stop()
		e.retry = nil
	}
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}

func (e *Engine) dispatch(a Action, guard func() bool) bool {
	return e.dispatchFrom(func(State) (Action, bool) {
		if guard != nil && !guard() {
			return nil, false
		}
		return a, true
	})
}

// dispatchFrom runs the reducer on the action produced by build, then
// publishes the new view and runs the resulting effects. build is called
// with the lock held so it can inspect the current state; returning false
// drops the action.
func (e *Engine) dispatchFrom(build func(State) (Action, bool)) bool {
	e.mu.Lock()
	a, ok := build(e.state)
	if !ok {
		e.mu.Unlock()
		return false
	}
	var effects []Effect
	e.state, effects = Reduce(e.state, a)
	deferred := e.applyLocked(effects)

	e.version++
	view := e.viewLocked()
	subs := make([]func(View), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()

	e.publish(view, subs)
	for _, run := range deferred {
		run()
	}
	return true
}

func (e *Engine) publish(view View, subs []func(View)) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	if view.Version <= e.published {
		return
	}
	e.published = view.Version
	for _, fn := range subs {
		fn(view)
	}
}

// applyLocked handles timer effects in place and returns the rest as
// closures to run once the lock is released.
func (e *Engine) applyLocked(effects []Effect) []func() {
	var deferred []func()
	for _, eff := range effects {
		switch eff := eff.(type) {
		case ScheduleFlush:
			e.armLocked(eff.ItemID)
		case CancelFlush:
			e.disarmLocked(eff.ItemID)
		case CancelAllFlushes:
			for id := range e.timers {
				e.disarmLocked(id)
			}
		case SendPatch:
			if !e.closed {
				deferred = append(deferred, func() { e.spawn(func() { e.sendPatch(eff) }) })
			}
		case SendDelete:
			if !e.closed {
				deferred = append(deferred, func() { e.spawn(func() { e.sendDelete(eff) }) })
			}
		case Refetch:
			if !e.closed {
				deferred = append(deferred, e.Refresh)
			}
		case RetryFetch:
			e.armRetryLocked(eff.Attempt)
		case Notify:
			deferred = append(deferred, func() { e.notify(eff.Notice) })
		case RequireLogin:
			deferred = append(deferred, func() {
				e.log.Warn(e.ctx, "cart backend requires login", nil)
				e.notifier.RequireLogin()
			})
		case Coalesced:
			e.metrics.IncCoalesced()
		case RolledBack:
			e.metrics.IncRollback(eff.Kind)
		}
	}
	return deferred
}

func (e *Engine) armLocked(itemID int64) {
	if e.closed {
		return
	}
	e.disarmLocked(itemID)
	ft := &flushTimer{}
	gen := e.state.Generation
	ft.timer = e.scheduler.AfterFunc(e.debounce, func() {
		e.dispatch(DebounceElapsed{ItemID: itemID, Generation: gen}, func() bool {
			if e.timers[itemID] != ft {
				return false
			}
			delete(e.timers, itemID)
			return true
		})
	})
	e.timers[itemID] = ft
}

// armRetryLocked schedules the next reconciling fetch. The timer only
// fetches if reconciliation is still owed when it fires.
func (e *Engine) armRetryLocked(attempt int) {
	if e.closed {
		return
	}
	if e.retry != nil {
		e.retry.timer.Stop()
	}
	wait := retryDelay(attempt)
	rt := &flushTimer{}
	rt.timer = e.scheduler.AfterFunc(wait, func() {
		e.mu.Lock()
		owed := e.retry == rt && e.state.Reconciling && !e.closed
		if e.retry == rt {
			e.retry = nil
		}
		e.mu.Unlock()
		if owed {
			e.Refresh()
		}
	})
	e.retry = rt
	e.log.Info(e.log.WithFields(e.ctx, map[string]any{
		"attempt": attempt,
		"wait":    wait.String(),
	}), "cart reconciliation failed, retrying")
}

// retryDelay doubles retryBase for every attempt after the first, capped at
// retryMax.
func retryDelay(attempt int) time.Duration {
	wait := retryBase
	for i := 1; i < attempt && wait < retryMax; i++ {
		wait *= 2
	}
	return min(wait, retryMax)
}

func (e *Engine) disarmLocked(itemID int64) {
	if ft, ok := e.timers[itemID]; ok {
		ft.timer.Stop()
		delete(e.timers, itemID)
	}
}

func (e *Engine) sendPatch(eff SendPatch) {
	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()
	ctx = e.log.WithItemID(ctx, eff.ItemID)

	err := e.call(ctx, "patch", func(token string) error {
		return e.backend.UpdateQuantity(ctx, token, eff.ItemID, eff.Quantity)
	})
	if err != nil {
		e.log.Warn(ctx, "quantity update failed", err)
		e.dispatch(PatchFailed{ItemID: eff.ItemID, Quantity: eff.Quantity, Generation: eff.Generation, Err: err}, nil)
		return
	}
	e.log.Debug(ctx, "quantity update accepted")
	e.dispatch(PatchSucceeded{ItemID: eff.ItemID, Quantity: eff.Quantity, Generation: eff.Generation}, nil)
}

func (e *Engine) sendDelete(eff SendDelete) {
	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()
	ctx = e.log.WithItemID(ctx, eff.ItemID)

	err := e.call(ctx, "delete", func(token string) error {
		return e.backend.RemoveItem(ctx, token, eff.ItemID)
	})
	if err != nil {
		e.log.Warn(ctx, "item removal failed", err)
		e.dispatch(RemoveFailed{ItemID: eff.ItemID, Err: err}, nil)
		return
	}
	e.log.Debug(ctx, "item removed")
	e.dispatch(RemoveSucceeded{ItemID: eff.ItemID}, nil)
}

func (e *Engine) fetch() error {
	e.dispatch(FetchStarted{}, nil)

	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()

	var fresh cart.Cart
	err := e.call(ctx, "fetch", func(token string) error {
		var err error
		fresh, err = e.backend.FetchCart(ctx, token)
		return err
	})
	if err != nil {
		e.log.Error(ctx, "cart fetch failed", err)
		e.dispatch(FetchFailed{Err: err}, nil)
		return err
	}
	e.log.Info(e.log.WithField(ctx, "lines", fresh.Len()), "cart loaded")
	e.dispatch(FetchSucceeded{Cart: fresh}, nil)
	return nil
}

// call reads the token and runs fn, recording metrics for the request.
// A token failure aborts before any network traffic.
func (e *Engine) call(ctx context.Context, op string, fn func(token string) error) error {
	token, err := e.creds.Token(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	err = fn(token)
	e.metrics.ObserveRequest(op, time.Since(start), err)
	return err
}

func (e *Engine) notify(n Notice) {
	if n.Quiet && !e.notifyQty {
		e.log.Info(e.log.WithItemID(e.ctx, n.ItemID), "quantity change rolled back to server state")
		return
	}
	e.notifier.Notify(n)
}

func (e *Engine) goSpawn(fn func()) {
	if !e.track() {
		return
	}
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// track registers one goroutine with the wait group Close waits on. It
// reports false once the engine is closed.
func (e *Engine) track() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.wg.Add(1)
	return true
}

func (e *Engine) viewLocked() View {
	s := e.state
	c := s.Cart.Clone()
	return View{
		Cart:        c,
		Totals:      cart.DeriveTotals(c, e.taxRate),
		Status:      s.Status,
		LoadErr:     s.LoadErr,
		Fetching:    s.Fetching,
		Reconciling: s.Reconciling,
		Pending:     sortedKeys(s.Pending),
		Removing:    sortedKeys(s.Removals),
		Version:     e.version,
	}
}

func sortedKeys[V any](m map[int64]V) []int64 {
	if len(m) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
