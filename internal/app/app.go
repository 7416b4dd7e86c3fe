package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/trolley/internal/api"
	"github.com/five82/trolley/internal/cartsync"
	"github.com/five82/trolley/internal/config"
	"github.com/five82/trolley/internal/credentials"
	"github.com/five82/trolley/internal/logger"
	"github.com/five82/trolley/internal/metrics"
	"github.com/five82/trolley/internal/prefs"
	"github.com/five82/trolley/internal/state"
	"github.com/five82/trolley/internal/ui"
)

// Options configure the trolley application.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses default ~/.config/trolley/prefs.toml
	Debounce   time.Duration // zero keeps the configured debounce
}

// Run boots the trolley TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Debounce > 0 {
		cfg.Debounce = opts.Debounce
	}

	logFile, err := openLogFile(cfg.LogPath())
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	log := logger.New(logger.Options{
		ServiceName: "trolley",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Output:      logFile,
	})

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.Warn(ctx, "load prefs, using defaults", err)
	}

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(registry)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, registry); err != nil {
				log.Error(ctx, "metrics server stopped", err)
			}
		}()
	}

	creds, err := openCredentials(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open credentials: %w", err)
	}
	defer func() { _ = creds.Close() }()

	client, err := api.NewClient(cfg.APIBase, cfg.RequestTimeout, api.WithCircuitBreaker(api.BreakerSettings{
		Failures: uint32(cfg.BreakerFailures),
		Cooldown: cfg.BreakerCooldown,
		OnStateChange: func(from, to string) {
			bctx := log.WithFields(ctx, map[string]any{"from": from, "to": to})
			if to == "open" {
				log.Warn(bctx, "cart api circuit opened", nil)
				return
			}
			log.Info(bctx, "cart api circuit state changed")
		},
	}))
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	store := &state.Store{}

	engine, err := cartsync.New(cartsync.Options{
		Backend:              client,
		Credentials:          credentials.NewProvider(creds.store),
		Notifier:             store,
		Logger:               log,
		Metrics:              syncMetrics,
		Debounce:             cfg.Debounce,
		Timeout:              cfg.RequestTimeout,
		TaxRate:              cfg.TaxRate,
		NotifyQuantityErrors: cfg.NotifyQuantityErrors,
	})
	if err != nil {
		return fmt.Errorf("init cart engine: %w", err)
	}
	defer engine.Close()

	unsubscribe := engine.Subscribe(store.Update)
	defer unsubscribe()

	log.Info(log.WithFields(ctx, map[string]any{
		"api_base":   cfg.APIBase,
		"debounce":   cfg.Debounce.String(),
		"credential": cfg.CredentialBackend,
	}), "trolley starting")

	// Initial load runs in the background so the UI can show progress.
	newLoader(engine, log, cfg.FetchRetries).Start(ctx)

	uiOpts := ui.Options{
		Context:       ctx,
		Engine:        engine,
		Store:         store,
		LogPath:       cfg.LogPath(),
		ThemeName:     userPrefs.Theme,
		PrefsPath:     opts.PrefsPath,
		ConfirmRemove: userPrefs.ConfirmRemove,
		LoginHint:     creds.hint,
	}
	return ui.Run(uiOpts)
}

// openLogFile opens path for appending, creating its directory.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// credentialSource is the configured credential store plus what to tell the
// user when the token is missing.
type credentialSource struct {
	store credentials.Store
	hint  string
	io.Closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openCredentials(ctx context.Context, cfg config.Config) (credentialSource, error) {
	key := credentials.AccessTokenKey
	switch cfg.CredentialBackend {
	case config.CredentialRedis:
		store, err := credentials.NewRedisStore(ctx, cfg.RedisURL, "")
		if err != nil {
			return credentialSource{}, err
		}
		return credentialSource{store: store, hint: "redis key " + store.Key(key), Closer: store}, nil
	case config.CredentialEnv:
		store := credentials.EnvStore{Prefix: config.EnvPrefix}
		return credentialSource{store: store, hint: "$" + config.EnvPrefix + "_ACCESS_TOKEN", Closer: nopCloser{}}, nil
	default:
		store, err := credentials.NewFileStore(cfg.CredentialsPath)
		if err != nil {
			return credentialSource{}, err
		}
		return credentialSource{store: store, hint: store.Path() + " (" + key + ")", Closer: nopCloser{}}, nil
	}
}
