package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"orb-trading-bot/internal/alert"
	"orb-trading-bot/internal/broker/alpaca"
	"orb-trading-bot/internal/broker/brokerobs"
	"orb-trading-bot/internal/broker/paper"
	"orb-trading-bot/internal/broker/zerodha"
	"orb-trading-bot/internal/eod"
	"orb-trading-bot/internal/eod/eodobs"
	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/live"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/recorder"
	"orb-trading-bot/internal/replay"
	"orb-trading-bot/internal/store"
	"orb-trading-bot/internal/trace"
	"orb-trading-bot/internal/tradelog"
)

// initializeSystem loads the environment and starts logging and tracing
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	tradelog.SetLocation(cfg.Location())
	return cfg, nil
}

// compressOldLogs compresses old tradelog files if retention is configured
func compressOldLogs(ctx context.Context) {
	v := os.Getenv("TRADER_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn(ctx, "Invalid TRADER_LOG_RETENTION_DAYS", "value", v)
		return
	}
	if err := tradelog.CompressOlder(n); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeBroker builds the configured broker and wraps it with
// observability
func initializeBroker(ctx context.Context, cfg *store.Config) (interfaces.Broker, error) {
	var brk interfaces.Broker

	switch cfg.Broker {
	case "ZERODHA":
		z, err := zerodha.NewZerodha(zerodha.Params{
			APIKey:          os.Getenv("KITE_API_KEY"),
			AccessToken:     os.Getenv("KITE_ACCESS_TOKEN"),
			Exchange:        cfg.Exchange,
			Product:         cfg.Order.Product,
			Tradingsymbol:   cfg.Symbol,
			InstrumentToken: cfg.InstrumentToken,
		})
		if err != nil {
			return nil, fmt.Errorf("zerodha: %w", err)
		}
		brk = z
	case "ALPACA":
		a, err := alpaca.New(alpaca.Params{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_SECRET_KEY"),
			BaseURL:   os.Getenv("ALPACA_BASE_URL"),
			Symbol:    cfg.Symbol,
		})
		if err != nil {
			return nil, fmt.Errorf("alpaca: %w", err)
		}
		brk = a
	default:
		p, err := newPaperBroker(ctx, cfg)
		if err != nil {
			return nil, err
		}
		brk = p
	}

	if cfg.Mode == "DRY_RUN" && cfg.Broker != "PAPER" {
		logger.Warn(ctx, "DRY_RUN with a real broker: orders will reach the broker's account", "broker", cfg.Broker)
	}
	return brokerobs.Wrap(brk), nil
}

func newPaperBroker(ctx context.Context, cfg *store.Config) (*paper.Broker, error) {
	opts := []paper.Option{
		paper.WithFillDelay(time.Duration(cfg.Paper.FillDelayMillis) * time.Millisecond),
	}
	if cfg.Paper.BarsPath != "" {
		bars, err := replay.LoadBarsCSV(cfg.Paper.BarsPath, cfg.Location())
		if err != nil {
			return nil, fmt.Errorf("paper feed: %w", err)
		}
		opts = append(opts, paper.WithBars(bars, time.Duration(cfg.Paper.PaceMillis)*time.Millisecond))
		logger.Info(ctx, "Paper broker replays bars as its feed", "path", cfg.Paper.BarsPath, "bars", len(bars))
	}
	return paper.New(opts...), nil
}

// initializeRecorder opens every configured result table
func initializeRecorder(ctx context.Context, cfg *store.Config) (interfaces.Recorder, error) {
	var recs []interfaces.Recorder

	if cfg.Storage.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			return nil, err
		}
		r, err := recorder.NewSQLiteRecorder(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
		logger.Info(ctx, "Recording results to SQLite", "path", cfg.Storage.SQLitePath)
	}
	if cfg.Storage.CSVPath != "" {
		r, err := recorder.NewCSVRecorder(cfg.Storage.CSVPath)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
		logger.Info(ctx, "Recording results to CSV", "path", cfg.Storage.CSVPath)
	}

	switch len(recs) {
	case 0:
		logger.Warn(ctx, "No result storage configured - results are kept in memory only")
		return recorder.NewNoopRecorder(), nil
	case 1:
		return recs[0], nil
	}
	return recorder.NewMultiRecorder(recs...), nil
}

// initializeAlerter always logs and adds Telegram when enabled
func initializeAlerter(ctx context.Context, cfg *store.Config) interfaces.Alerter {
	alerters := alert.Multi{alert.NewLogAlerter()}
	if cfg.Alerts.Telegram {
		token, chatID := os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID")
		if token == "" || chatID == "" {
			logger.Warn(ctx, "Telegram alerts enabled but TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is empty")
		} else {
			alerters = append(alerters, alert.NewTelegramAlerter(token, chatID))
		}
	}
	return alerters
}

// initializeSession wires the live session with the journal and the
// observable fills report
func initializeSession(cfg *store.Config, brk interfaces.Broker, rec interfaces.Recorder, alerter interfaces.Alerter) *live.Session {
	return live.NewSession(cfg, brk, rec, alerter,
		live.WithJournal(tradelog.FileJournal{}),
		live.WithSummarizer(eodobs.Wrap(eod.NewSummarizer())),
	)
}

// initializeScheduler fires the opening timeout and the end-of-day deadline
// on the session clock
func initializeScheduler(cfg *store.Config, s *live.Session) (*eod.Scheduler, error) {
	sched := eod.NewScheduler(cfg.Location(), cfg.CutoffClock(), s.TriggerEOD,
		eod.WithTradingDays(cfg.Session.TradingDays),
	)
	if err := sched.AddJob("opening_timeout", cfg.OpeningTimeoutClock(), s.ExpireOpening); err != nil {
		return nil, err
	}
	return sched, nil
}
