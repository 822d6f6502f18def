package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"fx-arb-watch/internal/alerting"
	"fx-arb-watch/internal/config"
	"fx-arb-watch/internal/feed"
	"fx-arb-watch/internal/metrics"
	"fx-arb-watch/internal/service"
	"fx-arb-watch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newListener() (*feed.Listener, error) {
	if a.Config.Feed.ProviderHost == "" || a.Config.Feed.ProviderPort == 0 {
		return nil, errors.New("feed.provider_host and feed.provider_port must be configured")
	}
	return feed.NewListener(feed.Options{
		ListenHost:      a.Config.Feed.ListenHost,
		ListenPort:      a.Config.Feed.ListenPort,
		AdvertiseHost:   a.Config.Feed.AdvertiseHost,
		ProviderHost:    a.Config.Feed.ProviderHost,
		ProviderPort:    a.Config.Feed.ProviderPort,
		IdleTimeout:     a.Config.Feed.IdleTimeout,
		ReadBufferBytes: a.Config.Feed.ReadBufferBytes,
	}, a.Logger), nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) startMetricsServer(ctx context.Context) func() {
	if !a.Config.Metrics.Enabled {
		return nil
	}

	reg := metrics.Init(a.Logger)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: a.Config.Metrics.ListenAddr, Handler: mux}

	go func() {
		a.Logger.Info().Str("addr", srv.Addr).Msg("metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// Run executes the long-running subscription session.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	listener, err := a.newListener()
	if err != nil {
		return fmt.Errorf("configure feed: %w", err)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if stopMetrics := a.startMetricsServer(ctx); stopMetrics != nil {
		defer stopMetrics()
	}

	notifier := a.newNotifier()

	var oppStore storage.OpportunityStore
	if store != nil {
		oppStore = store
	}

	svc := service.New(a.Config, listener, oppStore, notifier, a.Logger)

	a.Logger.Info().
		Str("anchor", a.Config.Engine.AnchorCurrency).
		Dur("quote_expiration", a.Config.Engine.QuoteExpiration).
		Msg("starting subscription session")

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("subscription session terminated with error")
		return err
	}

	a.Logger.Info().Msg("subscription session stopped")
	return nil
}

// ExportOptions hold parameters for exporting detected opportunities.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ReplayOptions configure offline processing of a captured feed file.
type ReplayOptions struct {
	File      string
	BatchSize int
}

// SimulateOptions configure the canned arbitrage scenario.
type SimulateOptions struct {
	Cross        string
	Price        float64
	ReversePrice float64
}
