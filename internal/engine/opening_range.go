package engine

import (
	"fmt"
	"time"

	"orb-trading-bot/internal/types"
)

// Clock is a wall-clock time of day, evaluated in a session time zone.
type Clock struct {
	Hour, Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant this clock reads on the calendar day of date in loc.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	d := date.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// Matches reports whether t, viewed in loc, is exactly at this clock.
func (c Clock) Matches(t time.Time, loc *time.Location) bool {
	lt := t.In(loc)
	return lt.Hour() == c.Hour && lt.Minute() == c.Minute && lt.Second() == 0
}

type Color string

const (
	Green   Color = "GREEN"
	Red     Color = "RED"
	Neutral Color = "NEUTRAL"
)

func colorOf(open, close float64) Color {
	switch {
	case close > open:
		return Green
	case close < open:
		return Red
	default:
		return Neutral
	}
}

// OpeningRange is the day's reference bar. Immutable once set on a Day.
type OpeningRange struct {
	Date  string // YYYY-MM-DD in the session zone
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
	Color Color
}

// Width is high minus low.
func (r OpeningRange) Width() float64 { return r.High - r.Low }

// RangeFromBar builds the opening range for the day bar b falls on.
func RangeFromBar(b types.Bar, loc *time.Location) OpeningRange {
	return OpeningRange{
		Date:  b.Time.In(loc).Format("2006-01-02"),
		Time:  b.Time,
		Open:  b.Open,
		High:  b.High,
		Low:   b.Low,
		Close: b.Close,
		Color: colorOf(b.Open, b.Close),
	}
}

// CaptureOpeningRange scans bars for the first one whose time of day is at in
// loc and returns it with its index. A neutral bar is still returned, along
// with ErrNeutralRange, so callers can log what they skipped.
func CaptureOpeningRange(bars []types.Bar, at Clock, loc *time.Location) (OpeningRange, int, error) {
	for i, b := range bars {
		if !at.Matches(b.Time, loc) {
			continue
		}
		rng := RangeFromBar(b, loc)
		if rng.Color == Neutral {
			return rng, i, ErrNeutralRange
		}
		return rng, i, nil
	}
	return OpeningRange{}, -1, ErrNoOpeningBar
}
