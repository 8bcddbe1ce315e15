package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{Interval: 15 * time.Second},
		Token:     TokenConfig{Symbol: "TAO", QuoteAsset: "USDT"},
		Band:      BandConfig{Min: 220, Max: 230},
		Rapid:     RapidConfig{ThresholdUSD: 5, Window: 2 * time.Minute},
		Alerting: AlertingConfig{
			RangeCooldown: 300 * time.Second,
			RapidCooldown: 120 * time.Second,
		},
		Export: ExportConfig{MaxDataPoints: 1000},
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateFatalErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing symbol", func(c *Config) { c.Token.Symbol = "  " }},
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }},
		{"inverted band", func(c *Config) { c.Band.Min = 231 }},
		{"zero threshold", func(c *Config) { c.Rapid.ThresholdUSD = 0 }},
		{"zero window", func(c *Config) { c.Rapid.Window = 0 }},
		{"telegram without token", func(c *Config) {
			c.Alerting.Telegram.Enabled = true
			c.Alerting.Telegram.ChatID = "chat"
		}},
		{"telegram without chat id", func(c *Config) {
			c.Alerting.Telegram.Enabled = true
			c.Alerting.Telegram.BotToken = "token"
		}},
		{"onchain feed without rpc", func(c *Config) { c.Sources.Onchain.FeedAddress = "0x1" }},
	}

	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestSymbolNormalized(t *testing.T) {
	cfg := validConfig()
	cfg.Token.Symbol = " tao "
	if got := cfg.Symbol(); got != "TAO" {
		t.Fatalf("Symbol = %q, want TAO", got)
	}
}
