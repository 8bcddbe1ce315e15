package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-band-alerts/internal/alerting"
	"token-band-alerts/internal/config"
	"token-band-alerts/internal/detector"
	"token-band-alerts/internal/display"
	"token-band-alerts/internal/fetcher"
	"token-band-alerts/internal/scheduler"
	"token-band-alerts/internal/storage"
)

// Watcher orchestrates fetching, detection, cooldown dispatch, and
// auditing. All loop state (price history, cooldown timers) lives here, so
// ticks can be driven directly in tests without the scheduler.
type Watcher struct {
	scheduler  *scheduler.Scheduler
	source     fetcher.PriceFetcher
	band       detector.Band
	rapid      *detector.Rapid
	dispatcher *alerting.Dispatcher
	notifier   alerting.Notifier
	ticks      storage.TickStore
	alerts     storage.AlertStore
	formatter  display.Formatter
	logger     zerolog.Logger

	symbol     string
	quoteAsset string
	bandMin    decimal.Decimal
	bandMax    decimal.Decimal
	threshold  decimal.Decimal
	window     time.Duration
	interval   time.Duration
	sources    []string
}

// New constructs the watcher service.
func New(cfg *config.Config, sched *scheduler.Scheduler, source fetcher.PriceFetcher, notifier alerting.Notifier, ticks storage.TickStore, alerts storage.AlertStore, logger zerolog.Logger) *Watcher {
	bandMin := decimal.NewFromFloat(cfg.Band.Min)
	bandMax := decimal.NewFromFloat(cfg.Band.Max)
	threshold := decimal.NewFromFloat(cfg.Rapid.ThresholdUSD)

	dispatcher := alerting.NewDispatcher(notifier, map[alerting.Kind]time.Duration{
		alerting.KindRange: cfg.Alerting.RangeCooldown,
		alerting.KindRapid: cfg.Alerting.RapidCooldown,
	}, logger)

	sources := []string{source.Name()}
	if chain, ok := source.(*fetcher.Chain); ok {
		sources = chain.Sources()
	}

	return &Watcher{
		scheduler:  sched,
		source:     source,
		band:       detector.NewBand(bandMin, bandMax),
		rapid:      detector.NewRapid(threshold, cfg.Rapid.Window, cfg.Scheduler.Interval),
		dispatcher: dispatcher,
		notifier:   notifier,
		ticks:      ticks,
		alerts:     alerts,
		formatter:  display.NewFormatter(cfg.Display.Timezone),
		logger:     logger.With().Str("component", "watcher").Logger(),
		symbol:     cfg.Symbol(),
		quoteAsset: cfg.Token.QuoteAsset,
		bandMin:    bandMin,
		bandMax:    bandMax,
		threshold:  threshold,
		window:     cfg.Rapid.Window,
		interval:   cfg.Scheduler.Interval,
		sources:    sources,
	}
}

// Run sends the startup summary and enters the poll loop. A failed startup
// notification is fatal: it is treated as configuration validation.
func (w *Watcher) Run(ctx context.Context) error {
	if w.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}

	summary := alerting.StartupSummary{
		Symbol:     w.symbol,
		QuoteAsset: w.quoteAsset,
		Sources:    w.sources,
		BandMin:    w.bandMin,
		BandMax:    w.bandMax,
		Threshold:  w.threshold,
		Window:     w.window,
		Interval:   w.interval,
		Timezone:   w.formatter.Label(),
	}
	if w.notifier != nil {
		if err := w.notifier.Notify(ctx, summary.Render()); err != nil {
			return fmt.Errorf("send startup notification: %w", err)
		}
	}
	w.logger.Info().
		Str("symbol", w.symbol).
		Str("band", w.bandMin.String()+"-"+w.bandMax.String()).
		Str("threshold_usd", w.threshold.String()).
		Dur("window", w.window).
		Dur("interval", w.interval).
		Msg("watcher started")

	return w.scheduler.Run(ctx, w.ProcessTick)
}

// ProcessTick executes one poll iteration: fetch, detect, dispatch, audit.
func (w *Watcher) ProcessTick(ctx context.Context, now time.Time) error {
	quote, err := w.source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, fetcher.ErrUnavailable) {
			w.logger.Warn().
				Str("time", w.formatter.Format(now)).
				Msg("price unavailable from all sources")
			return nil
		}
		return fmt.Errorf("fetch price: %w", err)
	}

	// One status line per successful tick.
	w.logger.Info().
		Str("time", w.formatter.Format(now)).
		Str("source", quote.Source).
		Str("pair", w.symbol+"/"+w.quoteAsset).
		Str("price", quote.Price.StringFixed(4)).
		Msg("tick")

	if w.ticks != nil {
		tick := storage.PriceTick{At: now, Symbol: w.symbol, Price: quote.Price, Source: quote.Source}
		if err := w.ticks.InsertTick(ctx, tick); err != nil {
			w.logger.Error().Err(err).Time("tick", now).Msg("failed to audit tick")
		}
	}

	if w.band.Contains(quote.Price) {
		text := alerting.RangeAlert{Price: quote.Price, At: now, Source: quote.Source}.Render(w.formatter)
		if w.dispatcher.Dispatch(ctx, now, alerting.KindRange, text) {
			w.auditAlert(ctx, storage.AlertRecord{
				Kind:    string(alerting.KindRange),
				FiredAt: now,
				Price:   quote.Price,
				Source:  quote.Source,
				Message: text,
			})
		}
	}

	if move, ok := w.rapid.Observe(now, quote.Price); ok {
		text := alerting.RapidAlert{Move: move, Source: quote.Source}.Render(w.formatter)
		if w.dispatcher.Dispatch(ctx, now, alerting.KindRapid, text) {
			w.auditAlert(ctx, storage.AlertRecord{
				Kind:           string(alerting.KindRapid),
				FiredAt:        now,
				Price:          quote.Price,
				Direction:      string(move.Direction),
				Magnitude:      move.Magnitude,
				ElapsedSeconds: int64(move.Elapsed.Seconds()),
				Source:         quote.Source,
				Message:        text,
			})
		}
	}

	return nil
}

func (w *Watcher) auditAlert(ctx context.Context, rec storage.AlertRecord) {
	if w.alerts == nil {
		return
	}
	if _, err := w.alerts.InsertAlert(ctx, rec); err != nil {
		w.logger.Error().Err(err).Str("kind", rec.Kind).Msg("failed to persist alert record")
	}
}
