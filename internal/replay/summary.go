package replay

import (
	"github.com/shopspring/decimal"

	"orb-trading-bot/internal/types"
)

// Summary aggregates a replay.
type Summary struct {
	Days       int
	Skipped    int
	ByOutcome  map[types.Outcome]int
	LongPoints float64
	ShortPts   float64
	NetPoints  float64
}

// Summarize totals runs. Points are summed exactly.
func Summarize(runs []DayRun) Summary {
	s := Summary{ByOutcome: make(map[types.Outcome]int)}
	long, short := decimal.Zero, decimal.Zero
	for _, r := range runs {
		s.Days++
		if r.Skipped != nil {
			s.Skipped++
			continue
		}
		for _, res := range r.Results {
			s.ByOutcome[res.Outcome]++
			p := decimal.NewFromFloat(res.Points)
			if res.Direction == types.Long {
				long = long.Add(p)
			} else {
				short = short.Add(p)
			}
		}
	}
	s.LongPoints = long.InexactFloat64()
	s.ShortPts = short.InexactFloat64()
	s.NetPoints = long.Add(short).InexactFloat64()
	return s
}
