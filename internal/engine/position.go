package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"orb-trading-bot/internal/types"
)

// quote is the slice of a bar or tick the machine evaluates. A tick is a
// quote with high == low == last.
type quote struct {
	at   time.Time
	high float64
	low  float64
	last float64
}

func barQuote(b types.Bar) quote {
	return quote{at: b.Time, high: b.High, low: b.Low, last: b.Close}
}

func tickQuote(t types.Tick) quote {
	return quote{at: t.Time, high: t.Price, low: t.Price, last: t.Price}
}

// Position is the day's single open position.
type Position struct {
	Direction    types.Direction
	EntryPrice   float64
	StopPrice    float64
	TargetPrice  float64
	EntryOrderID string
	OpenedAt     time.Time
}

func newPosition(dir types.Direction, entry float64, levels RiskLevels, orderID string, at time.Time) *Position {
	p := &Position{Direction: dir, EntryPrice: entry, EntryOrderID: orderID, OpenedAt: at}
	if dir == types.Long {
		p.StopPrice, p.TargetPrice = levels.LongStop, levels.LongTarget
	} else {
		p.StopPrice, p.TargetPrice = levels.ShortStop, levels.ShortTarget
	}
	return p
}

// exitSignal checks the stop before the target, so a quote touching both
// resolves to a stop.
func (p *Position) exitSignal(q quote) (types.Outcome, float64, bool) {
	switch p.Direction {
	case types.Long:
		if q.low <= p.StopPrice {
			return types.StopHit, p.StopPrice, true
		}
		if q.high >= p.TargetPrice {
			return types.TargetHit, p.TargetPrice, true
		}
	case types.Short:
		if q.high >= p.StopPrice {
			return types.StopHit, p.StopPrice, true
		}
		if q.low <= p.TargetPrice {
			return types.TargetHit, p.TargetPrice, true
		}
	}
	return "", 0, false
}

// points is the signed result of closing at exit, positive when profitable.
func (p *Position) points(exit float64) float64 {
	e := decimal.NewFromFloat(p.EntryPrice)
	x := decimal.NewFromFloat(exit)
	if p.Direction == types.Short {
		return e.Sub(x).InexactFloat64()
	}
	return x.Sub(e).InexactFloat64()
}

func (p *Position) exitSide() types.Side {
	if p.Direction == types.Long {
		return types.SideSell
	}
	return types.SideBuy
}

func entrySide(dir types.Direction) types.Side {
	if dir == types.Long {
		return types.SideBuy
	}
	return types.SideSell
}
