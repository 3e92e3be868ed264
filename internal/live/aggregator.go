package live

import (
	"time"

	"orb-trading-bot/internal/types"
)

// aggregator buckets ticks into bars of a fixed interval aligned to local
// midnight in the session zone. A bar is labelled with its start time and is
// complete once a tick for a later bucket arrives.
type aggregator struct {
	interval time.Duration
	loc      *time.Location
	cur      *types.Bar
}

func newAggregator(interval time.Duration, loc *time.Location) *aggregator {
	return &aggregator{interval: interval, loc: loc}
}

// bucket uses wall-clock minutes so bars stay aligned across DST changes.
func (a *aggregator) bucket(t time.Time) time.Time {
	lt := t.In(a.loc)
	step := int(a.interval / time.Minute)
	if step <= 0 {
		step = 1
	}
	minutes := (lt.Hour()*60 + lt.Minute()) / step * step
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, minutes, 0, 0, a.loc)
}

// Add folds t into the current bar and returns the previous bar when t opens
// a new bucket. Ticks older than the current bucket are dropped.
func (a *aggregator) Add(t types.Tick) (types.Bar, bool) {
	start := a.bucket(t.Time)
	if a.cur == nil {
		a.open(start, t.Price)
		return types.Bar{}, false
	}
	switch {
	case start.Equal(a.cur.Time):
		a.cur.High = max(a.cur.High, t.Price)
		a.cur.Low = min(a.cur.Low, t.Price)
		a.cur.Close = t.Price
		return types.Bar{}, false
	case start.Before(a.cur.Time):
		return types.Bar{}, false
	}
	done := *a.cur
	a.open(start, t.Price)
	return done, true
}

// FlushBefore returns the current bar if its bucket ended at or before at.
func (a *aggregator) FlushBefore(at time.Time) (types.Bar, bool) {
	if a.cur == nil || a.cur.Time.Add(a.interval).After(at) {
		return types.Bar{}, false
	}
	done := *a.cur
	a.cur = nil
	return done, true
}

func (a *aggregator) Reset() { a.cur = nil }

func (a *aggregator) open(start time.Time, price float64) {
	a.cur = &types.Bar{Time: start, Open: price, High: price, Low: price, Close: price}
}
