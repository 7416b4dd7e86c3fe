package app

import (
	"context"
	"fmt"
	"time"

	"github.com/five82/trolley/internal/apperr"
	"github.com/five82/trolley/internal/logger"
)

const (
	defaultRetryBase = time.Second
	maxBackoff       = 30 * time.Second
)

// cartLoader is the part of the engine the loader needs.
type cartLoader interface {
	FetchCart(ctx context.Context) error
}

// loader performs the initial cart load with bounded exponential backoff.
type loader struct {
	cart     cartLoader
	log      *logger.Logger
	attempts int
	base     time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func newLoader(cart cartLoader, log *logger.Logger, attempts int) *loader {
	if attempts < 1 {
		attempts = 1
	}
	return &loader{
		cart:     cart,
		log:      log,
		attempts: attempts,
		base:     defaultRetryBase,
		sleep:    sleepContext,
	}
}

// Start runs the load in the background. It returns immediately.
func (l *loader) Start(ctx context.Context) {
	go func() {
		_ = l.Load(ctx)
	}()
}

// Load fetches the cart, retrying retryable failures up to the configured
// number of attempts. Non-retryable failures, such as a missing login, end
// the loop at once.
func (l *loader) Load(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < l.attempts; attempt++ {
		if attempt > 0 {
			wait := calculateBackoff(attempt-1, l.base)
			l.log.Info(l.log.WithFields(ctx, map[string]any{
				"attempt": attempt + 1,
				"wait":    wait.String(),
			}), "retrying cart load")
			if sleepErr := l.sleep(ctx, wait); sleepErr != nil {
				return sleepErr
			}
		}

		err = l.cart.FetchCart(ctx)
		if err == nil {
			return nil
		}
		if !apperr.MetadataFor(apperr.CodeOf(err)).Retryable {
			return err
		}
	}
	return fmt.Errorf("load cart after %d attempts: %w", l.attempts, err)
}

// calculateBackoff doubles base for every prior failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures < 0 {
		failures = 0
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	if wait > maxBackoff {
		return maxBackoff
	}
	return wait
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
