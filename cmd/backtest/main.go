// Command backtest replays historical bars through the breakout engine and
// prints one line per trading day plus totals.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"

	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/recorder"
	"orb-trading-bot/internal/replay"
	"orb-trading-bot/internal/store"
	"orb-trading-bot/internal/types"
)

func main() {
	var (
		barsPath   = flag.String("bars", "", "CSV of historical bars (time,open,high,low,close)")
		configPath = flag.String("config", "", "optional YAML config; defaults apply when empty")
		symbol     = flag.String("symbol", "", "symbol label, overrides the config")
		outPath    = flag.String("out", "", "append results to this CSV")
		dbPath     = flag.String("db", "", "append results to this SQLite database")
	)
	flag.Parse()

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *barsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: backtest -bars file.csv [-config config.yaml] [-out results.csv] [-db results.db]")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *barsPath, *configPath, *symbol, *outPath, *dbPath, os.Stdout); err != nil {
		logger.ErrorWithErr(ctx, "Backtest failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, barsPath, configPath, symbol, outPath, dbPath string, w io.Writer) error {
	cfg, err := loadConfig(configPath, symbol)
	if err != nil {
		return err
	}

	bars, err := replay.LoadBarsCSV(barsPath, cfg.Location())
	if err != nil {
		return err
	}

	rec, err := openRecorder(outPath, dbPath)
	if err != nil {
		return err
	}
	defer rec.Close()

	runs, err := replay.New(cfg, rec).Run(ctx, bars)
	if err != nil {
		return err
	}
	printReport(w, runs, replay.Summarize(runs))
	return nil
}

func loadConfig(path, symbol string) (*store.Config, error) {
	var cfg *store.Config
	if path == "" {
		cfg = store.Default()
		cfg.Symbol = "BACKTEST"
	} else {
		c, err := store.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if symbol != "" {
		cfg.Symbol = symbol
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func openRecorder(outPath, dbPath string) (interfaces.Recorder, error) {
	var recs []interfaces.Recorder
	if outPath != "" {
		r, err := recorder.NewCSVRecorder(outPath)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	if dbPath != "" {
		r, err := recorder.NewSQLiteRecorder(dbPath)
		if err != nil {
			return nil, errors.Join(err, recorder.NewMultiRecorder(recs...).Close())
		}
		recs = append(recs, r)
	}
	if len(recs) == 0 {
		return recorder.NewNoopRecorder(), nil
	}
	return recorder.NewMultiRecorder(recs...), nil
}

func printReport(w io.Writer, runs []replay.DayRun, sum replay.Summary) {
	for _, r := range runs {
		if r.Skipped != nil {
			fmt.Fprintf(w, "%s  skipped: %v\n", r.Date, r.Skipped)
			continue
		}
		fmt.Fprintf(w, "%s  range %.2f-%.2f %s", r.Date, r.Range.Low, r.Range.High, r.Range.Color)
		for _, res := range r.Results {
			fmt.Fprintf(w, "  %s %s", res.Direction, res.Outcome)
			if res.Outcome != types.NotTriggered {
				fmt.Fprintf(w, " @%.2f (%+.2f)", res.ExitPrice, res.Points)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\ndays %d, skipped %d\n", sum.Days, sum.Skipped)
	outcomes := make([]string, 0, len(sum.ByOutcome))
	for o := range sum.ByOutcome {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-14s %d\n", o, sum.ByOutcome[types.Outcome(o)])
	}
	fmt.Fprintf(w, "points long %+.2f, short %+.2f, net %+.2f\n", sum.LongPoints, sum.ShortPts, sum.NetPoints)
}
