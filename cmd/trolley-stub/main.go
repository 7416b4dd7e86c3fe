// Command trolley-stub serves an in-memory cart backend for trying trolley
// without a real shop. The -fail-rate and -latency flags make requests slow
// or flaky so rollback paths can be exercised by hand.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/five82/trolley/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:8000", "listen address")
	token := flag.String("token", "", "accepted bearer token (empty accepts any)")
	failRate := flag.Float64("fail-rate", 0, "share of API requests answered with 503, 0..1")
	latency := flag.Duration("latency", 0, "delay added to every API request")
	tax := flag.String("tax", "0", "tax rate applied to grand_total, e.g. 0.11")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	_ = godotenv.Load()

	if *failRate < 0 || *failRate > 1 {
		fmt.Fprintf(os.Stderr, "trolley-stub: -fail-rate must be within 0..1, got %v\n", *failRate)
		return 2
	}
	taxRate, err := decimal.NewFromString(*tax)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trolley-stub: parse -tax: %v\n", err)
		return 2
	}

	level := logger.ParseLevel("info")
	if *verbose {
		level = logger.ParseLevel("debug")
	}
	log := logger.New(logger.Options{ServiceName: "trolley-stub", Level: level, Console: true})

	srv := &http.Server{
		Addr: *addr,
		Handler: newCartServer(seedCart(), stubOptions{
			Token:    *token,
			FailRate: *failRate,
			Latency:  *latency,
			TaxRate:  taxRate,
		}, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Info(log.WithFields(ctx, map[string]any{
			"addr":      *addr,
			"fail_rate": *failRate,
			"latency":   latency.String(),
		}), "stub backend listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server error", err)
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "shutdown", err)
			return 1
		}
	}
	return 0
}
