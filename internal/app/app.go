package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"token-band-alerts/internal/alerting"
	"token-band-alerts/internal/config"
	"token-band-alerts/internal/fetcher"
	"token-band-alerts/internal/scheduler"
	"token-band-alerts/internal/service"
	"token-band-alerts/internal/storage"
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

// newSourceChain builds the price-source fallback chain in priority order:
// MEXC, then CoinMarketCap when a key is configured, then the optional
// on-chain feed.
func (a *App) newSourceChain() *fetcher.Chain {
	sources := []fetcher.PriceFetcher{
		fetcher.NewMexc(fetcher.MexcOptions{
			BaseURL: a.Config.Sources.Mexc.BaseURL,
			Symbol:  a.Config.Symbol(),
			Quote:   a.Config.Token.QuoteAsset,
			Timeout: a.Config.Sources.Mexc.RequestTimeout,
		}, a.Logger),
	}

	if a.Config.Sources.CMC.APIKey != "" {
		sources = append(sources, fetcher.NewCoinMarketCap(fetcher.CoinMarketCapOptions{
			BaseURL: a.Config.Sources.CMC.BaseURL,
			APIKey:  a.Config.Sources.CMC.APIKey,
			Symbol:  a.Config.Symbol(),
			Convert: a.Config.Token.QuoteAsset,
			Timeout: a.Config.Sources.CMC.RequestTimeout,
		}, a.Logger))
	}

	if a.Config.Sources.Onchain.FeedAddress != "" {
		sources = append(sources, fetcher.NewOnchain(fetcher.OnchainOptions{
			RPCURL:      a.Config.Sources.Onchain.RPCURL,
			FeedAddress: a.Config.Sources.Onchain.FeedAddress,
			Timeout:     a.Config.Sources.Onchain.RequestTimeout,
		}, a.Logger))
	}

	return fetcher.NewChain(a.Logger, sources...)
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

// Run executes the long-running watcher service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; tick/alert auditing disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	// One advisory lock per run: a second instance would double-notify.
	if store != nil && a.Config.Scheduler.AdvisoryLockKey != 0 {
		unlock, acquired, lockErr := store.TryAdvisoryLock(ctx, a.Config.Scheduler.AdvisoryLockKey)
		if lockErr != nil {
			return lockErr
		}
		if !acquired {
			return fmt.Errorf("another watcher instance holds the advisory lock")
		}
		defer unlock()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToTick:  a.Config.Scheduler.AlignToTick,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	chain := a.newSourceChain()
	notifier := a.newNotifier()

	var tickStore storage.TickStore
	var alertStore storage.AlertStore
	if store != nil {
		tickStore = store
		alertStore = store
	}

	svc := service.New(a.Config, sched, chain, notifier, tickStore, alertStore, a.Logger)

	a.Logger.Info().Msg("starting watcher service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("watcher service stopped")
	return nil
}

// ExportOptions hold parameters for exporting recorded ticks.
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

// ReplayOptions configure the offline replay job.
type ReplayOptions struct {
	CSVPath string
}
