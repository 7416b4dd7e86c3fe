package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/five82/trolley/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (optional, defaults to ~/.config/trolley/config.toml)")
	debounce := flag.Duration("debounce", 0, "quantity debounce window, e.g. 300ms (optional)")
	prefsPath := flag.String("prefs", "", "preferences file path (optional)")
	flag.Parse()

	// A .env next to the binary may carry TROLLEY_* settings.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "trolley: load .env: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
	}
	if d := *debounce; d > 0 {
		opts.Debounce = d
	} else if d < 0 {
		fmt.Fprintf(os.Stderr, "trolley: -debounce must be positive, got %s\n", d)
		return 2
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "trolley: %v\n", err)
		return 1
	}
	return 0
}
