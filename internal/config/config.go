package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"fx-arb-watch/internal/logging"
	"fx-arb-watch/internal/market"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Status   StatusConfig   `mapstructure:"status"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN disables
// persistence.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// FeedConfig describes the provider subscription and the local socket.
type FeedConfig struct {
	ListenHost      string        `mapstructure:"listen_host"`
	ListenPort      int           `mapstructure:"listen_port"`
	AdvertiseHost   string        `mapstructure:"advertise_host"`
	ProviderHost    string        `mapstructure:"provider_host"`
	ProviderPort    int           `mapstructure:"provider_port"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ReadBufferBytes int           `mapstructure:"read_buffer_bytes"`
}

// EngineConfig governs quote admission and detection.
type EngineConfig struct {
	QuoteExpiration time.Duration `mapstructure:"quote_expiration"`
	AnchorCurrency  string        `mapstructure:"anchor_currency"`
	Notional        float64       `mapstructure:"notional"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	MinProfitPct float64        `mapstructure:"min_profit_pct"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// StatusConfig controls periodic engine status logging.
type StatusConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FXARBWATCHER")
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
	v.SetDefault("app.name", "fxarbwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("feed.listen_host", "127.0.0.1")
	v.SetDefault("feed.listen_port", 12534)
	v.SetDefault("feed.idle_timeout", "10s")
	v.SetDefault("feed.read_buffer_bytes", 4096)

	v.SetDefault("engine.quote_expiration", "1500ms")
	v.SetDefault("engine.anchor_currency", "USD")
	v.SetDefault("engine.notional", 100.0)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_profit_pct", 0.0)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", "127.0.0.1:9109")

	v.SetDefault("status.interval", "30s")
	v.SetDefault("status.startup_delay", "0s")

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

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Feed.ListenPort <= 0 || c.Feed.ListenPort > 65535 {
		return fmt.Errorf("feed.listen_port must be in 1..65535")
	}
	if c.Feed.IdleTimeout <= 0 {
		return fmt.Errorf("feed.idle_timeout must be greater than zero")
	}
	if c.Engine.QuoteExpiration <= 0 {
		return fmt.Errorf("engine.quote_expiration must be greater than zero")
	}
	if _, err := market.ParseCurrency(c.Engine.AnchorCurrency); err != nil {
		return fmt.Errorf("engine.anchor_currency: %w", err)
	}
	if c.Engine.Notional <= 0 {
		return fmt.Errorf("engine.notional must be greater than zero")
	}
	if c.Alerting.MinProfitPct < 0 {
		return fmt.Errorf("alerting.min_profit_pct cannot be negative")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// Anchor returns the validated anchor currency.
func (c *Config) Anchor() market.Currency {
	return market.Currency(c.Engine.AnchorCurrency)
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
