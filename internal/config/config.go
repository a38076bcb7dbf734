package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Duffel DuffelConfig `yaml:"duffel" mapstructure:"duffel"`
	Slack  SlackConfig  `yaml:"slack" mapstructure:"slack"`
	Search SearchConfig `yaml:"search" mapstructure:"search"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DuffelConfig holds Duffel API credentials and client settings.
type DuffelConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// SlackConfig holds the optional incoming-webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// SearchConfig configures the fare grid search.
type SearchConfig struct {
	Origin            string  `yaml:"origin" mapstructure:"origin"`
	Destination       string  `yaml:"destination" mapstructure:"destination"`
	Currency          string  `yaml:"currency" mapstructure:"currency"`
	Threshold         float64 `yaml:"threshold" mapstructure:"threshold"`
	StartDaysOut      int     `yaml:"start_days_out" mapstructure:"start_days_out"`
	EndDaysOut        int     `yaml:"end_days_out" mapstructure:"end_days_out"`
	MinTripDays       int     `yaml:"min_trip_days" mapstructure:"min_trip_days"`
	MaxTripDays       int     `yaml:"max_trip_days" mapstructure:"max_trip_days"`
	PreferNonstop     bool    `yaml:"prefer_nonstop" mapstructure:"prefer_nonstop"`
	MaxStopsPreferred int     `yaml:"max_stops_preferred" mapstructure:"max_stops_preferred"`
	MaxStopsFallback  int     `yaml:"max_stops_fallback" mapstructure:"max_stops_fallback"`
	OutboundCabin     string  `yaml:"outbound_cabin" mapstructure:"outbound_cabin"`
	ReturnCabin       string  `yaml:"return_cabin" mapstructure:"return_cabin"`
	OfferLimit        int     `yaml:"offer_limit" mapstructure:"offer_limit"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// OutputConfig configures where run artifacts are written.
type OutputConfig struct {
	SnapshotPath string `yaml:"snapshot_path" mapstructure:"snapshot_path"`
	XLSXPath     string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FAREWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("duffel.token", "")
	v.SetDefault("duffel.base_url", "https://api.duffel.com")
	v.SetDefault("duffel.rate_limit", 2.0)
	v.SetDefault("duffel.rate_burst", 1)
	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("search.origin", "ORD")
	v.SetDefault("search.destination", "LHR")
	v.SetDefault("search.currency", "USD")
	v.SetDefault("search.threshold", 2500.00)
	v.SetDefault("search.start_days_out", 14)
	v.SetDefault("search.end_days_out", 28)
	v.SetDefault("search.min_trip_days", 3)
	v.SetDefault("search.max_trip_days", 14)
	v.SetDefault("search.prefer_nonstop", true)
	v.SetDefault("search.max_stops_preferred", 0)
	v.SetDefault("search.max_stops_fallback", 1)
	v.SetDefault("search.outbound_cabin", "business")
	v.SetDefault("search.return_cabin", "premium_economy")
	v.SetDefault("search.offer_limit", 30)
	v.SetDefault("search.concurrency", 1)
	v.SetDefault("output.snapshot_path", "latest_results.json")
	v.SetDefault("output.xlsx_path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration can drive a run. Called before
// any network activity so a missing credential fails fast.
func (c *Config) Validate() error {
	if c.Duffel.Token == "" {
		return eris.New("config: duffel.token is required (set FAREWATCH_DUFFEL_TOKEN)")
	}
	if c.Search.Origin == "" || c.Search.Destination == "" {
		return eris.New("config: search.origin and search.destination are required")
	}
	if c.Search.Threshold <= 0 {
		return eris.New("config: search.threshold must be positive")
	}
	if c.Search.StartDaysOut > c.Search.EndDaysOut {
		return eris.New("config: search.start_days_out must not exceed search.end_days_out")
	}
	if c.Search.MinTripDays < 0 {
		return eris.New("config: search.min_trip_days must not be negative")
	}
	if c.Search.MinTripDays > c.Search.MaxTripDays {
		return eris.New("config: search.min_trip_days must not exceed search.max_trip_days")
	}
	if c.Search.MaxStopsPreferred > c.Search.MaxStopsFallback {
		return eris.New("config: search.max_stops_preferred must not exceed search.max_stops_fallback")
	}
	if c.Search.OfferLimit <= 0 {
		return eris.New("config: search.offer_limit must be positive")
	}
	if c.Search.Concurrency < 1 {
		return eris.New("config: search.concurrency must be at least 1")
	}
	if c.Output.SnapshotPath == "" {
		return eris.New("config: output.snapshot_path is required")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
