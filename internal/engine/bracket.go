package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BracketConfig sets how far stops sit beyond the range and how far targets
// sit as a multiple of the range width. MinTick, when positive, rounds every
// level to the instrument's tick.
type BracketConfig struct {
	Offset         float64
	TargetMultiple float64
	MinTick        float64
}

func DefaultBracketConfig() BracketConfig {
	return BracketConfig{Offset: 8, TargetMultiple: 0.8}
}

// RiskLevels are derived once per day from the opening range.
type RiskLevels struct {
	Risk float64

	LongEntry  float64
	LongStop   float64
	LongTarget float64

	ShortEntry  float64
	ShortStop   float64
	ShortTarget float64
}

// ComputeRiskLevels derives entries, stops and targets:
//
//	longStop    = low - offset       shortStop   = high + offset
//	longTarget  = high + risk*mult   shortTarget = low - risk*mult
//
// where risk = high - low. A non-positive risk yields ErrDegenerateRange.
func ComputeRiskLevels(rng OpeningRange, cfg BracketConfig) (RiskLevels, error) {
	high := decimal.NewFromFloat(rng.High)
	low := decimal.NewFromFloat(rng.Low)
	risk := high.Sub(low)
	if !risk.IsPositive() {
		return RiskLevels{}, fmt.Errorf("%w: high %.2f low %.2f", ErrDegenerateRange, rng.High, rng.Low)
	}

	offset := decimal.NewFromFloat(cfg.Offset)
	reach := risk.Mul(decimal.NewFromFloat(cfg.TargetMultiple))
	tick := decimal.NewFromFloat(cfg.MinTick)

	return RiskLevels{
		Risk: risk.InexactFloat64(),

		LongEntry:  rng.High,
		LongStop:   roundToTick(low.Sub(offset), tick),
		LongTarget: roundToTick(high.Add(reach), tick),

		ShortEntry:  rng.Low,
		ShortStop:   roundToTick(high.Add(offset), tick),
		ShortTarget: roundToTick(low.Sub(reach), tick),
	}, nil
}

func roundToTick(price, tick decimal.Decimal) float64 {
	if !tick.IsPositive() {
		return price.InexactFloat64()
	}
	return price.Div(tick).Round(0).Mul(tick).InexactFloat64()
}

