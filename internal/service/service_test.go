package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-band-alerts/internal/config"
	"token-band-alerts/internal/fetcher"
)

type scriptedSource struct {
	quotes []fetcher.Quote
	errs   []error
	idx    int
}

func (s *scriptedSource) Fetch(ctx context.Context) (fetcher.Quote, error) {
	if s.idx >= len(s.quotes) {
		return fetcher.Quote{}, fetcher.ErrUnavailable
	}
	q, err := s.quotes[s.idx], s.errs[s.idx]
	s.idx++
	return q, err
}

func (s *scriptedSource) Name() string { return "scripted" }

type capturingNotifier struct {
	sent []string
	err  error
}

func (c *capturingNotifier) Notify(_ context.Context, text string) error {
	c.sent = append(c.sent, text)
	return c.err
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{Interval: 15 * time.Second},
		Token:     config.TokenConfig{Symbol: "TAO", QuoteAsset: "USDT"},
		Band:      config.BandConfig{Min: 220, Max: 230},
		Rapid:     config.RapidConfig{ThresholdUSD: 5, Window: 2 * time.Minute},
		Alerting: config.AlertingConfig{
			RangeCooldown: 300 * time.Second,
			RapidCooldown: 120 * time.Second,
		},
		Display: config.DisplayConfig{Timezone: "UTC"},
		Export:  config.ExportConfig{MaxDataPoints: 1000},
	}
}

var tickBase = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func quoteAt(price float64) fetcher.Quote {
	return fetcher.Quote{Price: decimal.NewFromFloat(price), Source: "mexc"}
}

func TestTickRangeAlertWithCooldown(t *testing.T) {
	// 225 (fires), 225 at t=100s (suppressed), 225 at t=305s (fires again).
	src := &scriptedSource{
		quotes: []fetcher.Quote{quoteAt(225), quoteAt(225), quoteAt(225)},
		errs:   []error{nil, nil, nil},
	}
	notifier := &capturingNotifier{}
	w := New(testConfig(), nil, src, notifier, nil, nil, zerolog.Nop())

	times := []time.Duration{0, 100 * time.Second, 305 * time.Second}
	for _, offset := range times {
		if err := w.ProcessTick(context.Background(), tickBase.Add(offset)); err != nil {
			t.Fatalf("tick at +%s failed: %v", offset, err)
		}
	}

	if len(notifier.sent) != 2 {
		t.Fatalf("sent %d notifications, want 2 (cooldown suppresses the middle one)", len(notifier.sent))
	}
	for _, msg := range notifier.sent {
		if !strings.Contains(msg, "Price: 225.0000") {
			t.Fatalf("range alert missing price:\n%s", msg)
		}
		if !strings.Contains(msg, "Source: mexc") {
			t.Fatalf("range alert missing provenance:\n%s", msg)
		}
	}
}

func TestTickRapidMoveAlert(t *testing.T) {
	// Out-of-band prices so only the rapid path fires: 250 -> 251 -> 256.5.
	src := &scriptedSource{
		quotes: []fetcher.Quote{quoteAt(250), quoteAt(251), quoteAt(256.5)},
		errs:   []error{nil, nil, nil},
	}
	notifier := &capturingNotifier{}
	w := New(testConfig(), nil, src, notifier, nil, nil, zerolog.Nop())

	for i, offset := range []time.Duration{0, 15 * time.Second, 30 * time.Second} {
		if err := w.ProcessTick(context.Background(), tickBase.Add(offset)); err != nil {
			t.Fatalf("tick %d failed: %v", i, err)
		}
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1 rapid alert", len(notifier.sent))
	}
	msg := notifier.sent[0]
	for _, want := range []string{"Rapid RISE detected", "$6.50 in 30s", "From 250.0000 to 256.5000", "Source: mexc"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("rapid alert missing %q:\n%s", want, msg)
		}
	}
}

func TestTickUnavailableSkipsDetection(t *testing.T) {
	src := &scriptedSource{
		quotes: []fetcher.Quote{{}, quoteAt(225)},
		errs:   []error{fetcher.ErrUnavailable, nil},
	}
	notifier := &capturingNotifier{}
	w := New(testConfig(), nil, src, notifier, nil, nil, zerolog.Nop())

	if err := w.ProcessTick(context.Background(), tickBase); err != nil {
		t.Fatalf("unavailable tick must not error: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatal("no detection may run on an unavailable tick")
	}

	// Next tick proceeds normally.
	if err := w.ProcessTick(context.Background(), tickBase.Add(15*time.Second)); err != nil {
		t.Fatalf("recovered tick failed: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("recovered tick should fire the range alert, sent=%d", len(notifier.sent))
	}
}

func TestTickNotifierFailureDoesNotStopLoop(t *testing.T) {
	src := &scriptedSource{
		quotes: []fetcher.Quote{quoteAt(225)},
		errs:   []error{nil},
	}
	notifier := &capturingNotifier{err: errors.New("telegram down")}
	w := New(testConfig(), nil, src, notifier, nil, nil, zerolog.Nop())

	if err := w.ProcessTick(context.Background(), tickBase); err != nil {
		t.Fatalf("notifier failure must not fail the tick: %v", err)
	}
}

func TestRangeAndRapidCooldownsIndependent(t *testing.T) {
	// 225 fires range at t=0; 231.5 at t=15 is out of band but fires rapid;
	// range cooldown must be untouched by the rapid fire.
	src := &scriptedSource{
		quotes: []fetcher.Quote{quoteAt(225), quoteAt(231.5), quoteAt(229)},
		errs:   []error{nil, nil, nil},
	}
	notifier := &capturingNotifier{}
	cfg := testConfig()
	cfg.Alerting.RangeCooldown = 10 * time.Second
	w := New(cfg, nil, src, notifier, nil, nil, zerolog.Nop())

	for _, offset := range []time.Duration{0, 15 * time.Second, 30 * time.Second} {
		if err := w.ProcessTick(context.Background(), tickBase.Add(offset)); err != nil {
			t.Fatalf("tick failed: %v", err)
		}
	}

	// t=0 range; t=15 rapid (+6.5); t=30 range again (cooldown 10s elapsed).
	if len(notifier.sent) != 3 {
		t.Fatalf("sent %d notifications, want 3", len(notifier.sent))
	}
}
