// Package replay runs the breakout engine synchronously over historical bars.
// Each trading date gets a fresh Day; orders fill at their reference level
// and the day's last bar is the end-of-day deadline.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orb-trading-bot/internal/engine"
	"orb-trading-bot/internal/engine/engineobs"
	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/store"
	"orb-trading-bot/internal/trace"
	"orb-trading-bot/internal/types"
)

// DayRun is what replaying one date produced.
type DayRun struct {
	Date    string
	Range   engine.OpeningRange
	Levels  engine.RiskLevels
	Skipped error
	Orders  []types.OrderReq
	Results []types.TradeResult
}

type Driver struct {
	params engine.Params
	open   engine.Clock
	loc    *time.Location
	rec    interfaces.Recorder
}

// New builds a driver from cfg. rec may be nil.
func New(cfg *store.Config, rec interfaces.Recorder) *Driver {
	p := cfg.DayParams()
	p.NewOrderID = nil
	return &Driver{
		params: p,
		open:   cfg.OpeningClock(),
		loc:    cfg.Location(),
		rec:    rec,
	}
}

// Run replays bars day by day and records every result. Identical input
// yields identical results.
func (d *Driver) Run(ctx context.Context, bars []types.Bar) ([]DayRun, error) {
	ctx, span := trace.StartSpan(ctx, "replay.Run")
	defer span.End()

	op := logger.StartOperation(ctx, "replay", "bars", len(bars))
	days := GroupByDay(bars, d.loc)

	runs := make([]DayRun, 0, len(days))
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			op.EndWithError(err)
			return runs, err
		}
		run, err := d.RunDay(ctx, day)
		if err != nil {
			op.EndWithError(err, "date", day.Date)
			return runs, err
		}
		runs = append(runs, run)
	}
	op.End("days", len(runs))
	return runs, nil
}

// RunDay replays a single date.
func (d *Driver) RunDay(ctx context.Context, day Day) (DayRun, error) {
	ctx, span := trace.StartSpan(ctx, "replay.RunDay")
	defer span.End()

	p := d.params
	p.NewOrderID = sequentialIDs(day.Date)
	raw := engine.NewDay(day.Date, p, nil)
	eng := engineobs.Wrap(raw)
	run := DayRun{Date: day.Date}

	rng, idx, err := engine.CaptureOpeningRange(day.Bars, d.open, d.loc)
	if errors.Is(err, engine.ErrNoOpeningBar) {
		if err := eng.Skip(ctx, err); err != nil {
			return run, err
		}
	} else {
		run.Range = rng
		if err := eng.SetRange(ctx, rng); err != nil && !isSkip(err) {
			return run, fmt.Errorf("%s: %w", day.Date, err)
		}
	}

	if eng.State() == engine.RangeSet {
		for _, b := range day.Bars[idx+1:] {
			if err := eng.OnBar(ctx, b); err != nil {
				return run, fmt.Errorf("%s bar %s: %w", day.Date, b.Time.Format(time.RFC3339), err)
			}
		}
		last := day.Bars[len(day.Bars)-1]
		if err := eng.ForceClose(ctx, last.Close); err != nil {
			return run, fmt.Errorf("%s: %w", day.Date, err)
		}
	}

	run.Results = eng.Finish(ctx)
	run.Orders = eng.Orders()
	run.Levels = raw.Levels()
	run.Skipped = raw.Skipped()

	if d.rec != nil {
		for _, res := range run.Results {
			if err := d.rec.Record(res); err != nil {
				return run, fmt.Errorf("record %s %s: %w", res.Date, res.Direction, err)
			}
		}
	}
	return run, nil
}

func isSkip(err error) bool {
	return errors.Is(err, engine.ErrNeutralRange) || errors.Is(err, engine.ErrDegenerateRange)
}

// sequentialIDs gives replayed orders stable ids so reruns match exactly.
func sequentialIDs(date string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("BT%s-%d", date, n)
	}
}
