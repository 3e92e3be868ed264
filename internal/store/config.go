package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"orb-trading-bot/internal/engine"
	"orb-trading-bot/internal/types"
)

type Config struct {
	Mode   string `yaml:"mode"`   // DRY_RUN or LIVE
	Broker string `yaml:"broker"` // PAPER, ZERODHA or ALPACA

	Symbol          string `yaml:"symbol"`
	Exchange        string `yaml:"exchange"`
	InstrumentToken uint32 `yaml:"instrument_token"`
	Timezone        string `yaml:"timezone"`

	Session struct {
		OpeningTime           string `yaml:"opening_time"`
		BarIntervalMinutes    int    `yaml:"bar_interval_minutes"`
		EODCutoff             string `yaml:"eod_cutoff"`
		OpeningTimeoutMinutes int    `yaml:"opening_timeout_minutes"`
		DrainGraceSeconds     int    `yaml:"drain_grace_seconds"`
		TradingDays           string `yaml:"trading_days"` // cron day-of-week field
	} `yaml:"session"`

	Bracket struct {
		Offset         *float64 `yaml:"offset"` // nil when absent; 0 puts stops on the range edges
		TargetMultiple float64  `yaml:"target_multiple"`
		MinTick        float64  `yaml:"min_tick"`
	} `yaml:"bracket"`

	Order struct {
		Qty       int    `yaml:"qty"`
		EntryType string `yaml:"entry_type"` // MARKET or LIMIT
		Product   string `yaml:"product"`    // Zerodha product code
	} `yaml:"order"`

	Paper struct {
		BarsPath        string `yaml:"bars_path"` // optional CSV replayed as the feed
		PaceMillis      int    `yaml:"pace_millis"`
		FillDelayMillis int    `yaml:"fill_delay_millis"`
	} `yaml:"paper"`

	Storage struct {
		SQLitePath string `yaml:"sqlite_path"`
		CSVPath    string `yaml:"csv_path"`
	} `yaml:"storage"`

	HTTPPort  int `yaml:"http_port"`
	QueueSize int `yaml:"queue_size"`

	Alerts struct {
		Telegram bool `yaml:"telegram"`
	} `yaml:"alerts"`
}

// Default returns a config with every default applied and no file read.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.Broker == "" {
		c.Broker = "PAPER"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Berlin"
	}
	if c.Session.OpeningTime == "" {
		c.Session.OpeningTime = "09:00"
	}
	if c.Session.BarIntervalMinutes == 0 {
		c.Session.BarIntervalMinutes = 15
	}
	if c.Session.EODCutoff == "" {
		c.Session.EODCutoff = "17:30"
	}
	if c.Session.OpeningTimeoutMinutes == 0 {
		c.Session.OpeningTimeoutMinutes = 30
	}
	if c.Session.DrainGraceSeconds == 0 {
		c.Session.DrainGraceSeconds = 30
	}
	if c.Session.TradingDays == "" {
		c.Session.TradingDays = "1-5"
	}
	if c.Bracket.Offset == nil {
		offset := engine.DefaultBracketConfig().Offset
		c.Bracket.Offset = &offset
	}
	if c.Bracket.TargetMultiple == 0 {
		c.Bracket.TargetMultiple = 0.8
	}
	if c.Order.Qty == 0 {
		c.Order.Qty = 1
	}
	if c.Order.EntryType == "" {
		c.Order.EntryType = "MARKET"
	}
	if c.Order.Product == "" {
		c.Order.Product = "MIS"
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 9108
	}
	if c.QueueSize == 0 {
		c.QueueSize = 1024
	}
	c.Mode = strings.ToUpper(c.Mode)
	c.Broker = strings.ToUpper(c.Broker)
	c.Order.EntryType = strings.ToUpper(c.Order.EntryType)
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	switch c.Broker {
	case "PAPER", "ZERODHA", "ALPACA":
	default:
		return fmt.Errorf("invalid broker '%s': must be 'PAPER', 'ZERODHA' or 'ALPACA'", c.Broker)
	}
	if c.Mode == "LIVE" && c.Broker == "PAPER" {
		return errors.New("mode LIVE requires a real broker")
	}
	if c.Symbol == "" {
		return errors.New("symbol cannot be empty")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	if _, err := time.Parse("15:04", c.Session.OpeningTime); err != nil {
		return fmt.Errorf("session.opening_time must be HH:MM, got '%s'", c.Session.OpeningTime)
	}
	if _, err := time.Parse("15:04", c.Session.EODCutoff); err != nil {
		return fmt.Errorf("session.eod_cutoff must be HH:MM, got '%s'", c.Session.EODCutoff)
	}
	if c.Session.BarIntervalMinutes <= 0 || 1440%c.Session.BarIntervalMinutes != 0 {
		return fmt.Errorf("session.bar_interval_minutes must divide a day, got %d", c.Session.BarIntervalMinutes)
	}
	if c.Bracket.Offset == nil {
		return errors.New("bracket.offset is not set")
	}
	if *c.Bracket.Offset < 0 {
		return fmt.Errorf("bracket.offset must be >= 0, got %.2f", *c.Bracket.Offset)
	}
	if c.Bracket.TargetMultiple <= 0 {
		return fmt.Errorf("bracket.target_multiple must be > 0, got %.2f", c.Bracket.TargetMultiple)
	}
	if c.Order.Qty <= 0 {
		return fmt.Errorf("order.qty must be > 0, got %d", c.Order.Qty)
	}
	if c.Order.EntryType != "MARKET" && c.Order.EntryType != "LIMIT" {
		return fmt.Errorf("order.entry_type must be 'MARKET' or 'LIMIT', got '%s'", c.Order.EntryType)
	}
	return nil
}

// Location returns the configured trading time zone. Validate has already
// checked that it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) BarInterval() time.Duration {
	return time.Duration(c.Session.BarIntervalMinutes) * time.Minute
}

func (c *Config) OpeningTimeout() time.Duration {
	return time.Duration(c.Session.OpeningTimeoutMinutes) * time.Minute
}

func (c *Config) DrainGrace() time.Duration {
	return time.Duration(c.Session.DrainGraceSeconds) * time.Second
}

// OpeningClock is the configured opening bar time of day.
func (c *Config) OpeningClock() engine.Clock {
	at, _ := engine.ParseClock(c.Session.OpeningTime)
	return at
}

// OpeningTimeoutClock is the time of day after which a missing opening bar
// skips the day.
func (c *Config) OpeningTimeoutClock() engine.Clock {
	t := c.OpeningClock().On(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC).Add(c.OpeningTimeout())
	return engine.Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// CutoffClock is the configured end-of-day deadline.
func (c *Config) CutoffClock() engine.Clock {
	at, _ := engine.ParseClock(c.Session.EODCutoff)
	return at
}

// DayParams builds the per-day engine parameters. Journal and NewOrderID are
// left for the caller.
func (c *Config) DayParams() engine.Params {
	return engine.Params{
		Symbol: c.Symbol,
		Bracket: engine.BracketConfig{
			Offset:         *c.Bracket.Offset,
			TargetMultiple: c.Bracket.TargetMultiple,
			MinTick:        c.Bracket.MinTick,
		},
		Qty:       c.Order.Qty,
		EntryType: types.OrderType(c.Order.EntryType),
	}
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
