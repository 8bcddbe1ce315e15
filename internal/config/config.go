package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"token-band-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Token     TokenConfig     `mapstructure:"token"`
	Band      BandConfig      `mapstructure:"band"`
	Rapid     RapidConfig     `mapstructure:"rapid"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Display   DisplayConfig   `mapstructure:"display"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates the optional PostgreSQL audit store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs polling cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToTick     bool          `mapstructure:"align_to_tick"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// TokenConfig identifies the watched asset.
type TokenConfig struct {
	Symbol     string `mapstructure:"symbol"`
	QuoteAsset string `mapstructure:"quote_asset"`
}

// BandConfig is the static range-alert band.
type BandConfig struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// RapidConfig parameterises rapid-move detection.
type RapidConfig struct {
	ThresholdUSD float64       `mapstructure:"threshold_usd"`
	Window       time.Duration `mapstructure:"window"`
}

// SourcesConfig covers the price-source fallback chain, primary first.
type SourcesConfig struct {
	Mexc    MexcConfig    `mapstructure:"mexc"`
	CMC     CMCConfig     `mapstructure:"cmc"`
	Onchain OnchainConfig `mapstructure:"onchain"`
}

// MexcConfig is the primary spot-ticker source.
type MexcConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// CMCConfig is the CoinMarketCap fallback source; disabled without a key.
type CMCConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// OnchainConfig is the optional on-chain aggregator source of last resort.
type OnchainConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	FeedAddress    string        `mapstructure:"feed_address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AlertingConfig defines cooldowns and routing.
type AlertingConfig struct {
	RangeCooldown time.Duration  `mapstructure:"range_cooldown"`
	RapidCooldown time.Duration  `mapstructure:"rapid_cooldown"`
	Telegram      TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// DisplayConfig controls human-facing formatting.
type DisplayConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOKENWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tokenwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "15s")
	v.SetDefault("scheduler.align_to_tick", false)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x746f6b77))

	v.SetDefault("token.quote_asset", "USDT")

	v.SetDefault("band.min", 220.0)
	v.SetDefault("band.max", 230.0)

	v.SetDefault("rapid.threshold_usd", 5.0)
	v.SetDefault("rapid.window", "2m")

	v.SetDefault("sources.mexc.base_url", "https://api.mexc.com")
	v.SetDefault("sources.mexc.request_timeout", "10s")
	v.SetDefault("sources.cmc.base_url", "https://pro-api.coinmarketcap.com")
	v.SetDefault("sources.cmc.request_timeout", "10s")
	v.SetDefault("sources.onchain.request_timeout", "10s")

	v.SetDefault("alerting.range_cooldown", "300s")
	v.SetDefault("alerting.rapid_cooldown", "120s")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("display.timezone", "UTC")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate enforces fatal startup errors: the watcher never runs
// half-configured.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Token.Symbol) == "" {
		return fmt.Errorf("token.symbol is required (e.g. TAO)")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Band.Min > c.Band.Max {
		return fmt.Errorf("band.min must not exceed band.max")
	}
	if c.Rapid.ThresholdUSD <= 0 {
		return fmt.Errorf("rapid.threshold_usd must be greater than zero")
	}
	if c.Rapid.Window <= 0 {
		return fmt.Errorf("rapid.window must be greater than zero")
	}
	if c.Alerting.RangeCooldown < 0 || c.Alerting.RapidCooldown < 0 {
		return fmt.Errorf("alerting cooldowns cannot be negative")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	if c.Sources.Onchain.FeedAddress != "" && c.Sources.Onchain.RPCURL == "" {
		return fmt.Errorf("sources.onchain.rpc_url is required when a feed address is set")
	}
	return nil
}

// Symbol returns the normalized token symbol.
func (c *Config) Symbol() string {
	return strings.ToUpper(strings.TrimSpace(c.Token.Symbol))
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
