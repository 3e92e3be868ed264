package replay

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"orb-trading-bot/internal/types"
)

// csvBar is one row of a historical bar file. The time column may be named
// time, date, datetime or timestamp, in any case.
type csvBar struct {
	Time   string  `csv:"time"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume,omitempty"`
}

var timeColumns = map[string]bool{"date": true, "datetime": true, "timestamp": true, "time": true}

var layouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadBarsCSV reads bars from a CSV file with open, high, low and close
// columns. Timestamps without an offset are read in loc; bare integers are
// epoch seconds, or milliseconds when they are too large for seconds. Bars
// are returned sorted by time.
func LoadBarsCSV(path string, loc *time.Location) ([]types.Bar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBarsCSV(raw, loc)
}

// ParseBarsCSV is LoadBarsCSV on an in-memory file.
func ParseBarsCSV(raw []byte, loc *time.Location) ([]types.Bar, error) {
	raw, err := normalizeHeader(raw)
	if err != nil {
		return nil, err
	}

	var rows []*csvBar
	if err := gocsv.UnmarshalBytes(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse bars: %w", err)
	}

	bars := make([]types.Bar, 0, len(rows))
	for i, r := range rows {
		ts, err := parseTime(r.Time, loc)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		bars = append(bars, types.Bar{Time: ts, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func normalizeHeader(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	sc := bufio.NewScanner(bytes.NewReader(raw))
	if !sc.Scan() {
		return nil, fmt.Errorf("parse bars: empty file")
	}
	header := sc.Text()

	cols := strings.Split(header, ",")
	seenTime := false
	for i, c := range cols {
		c = strings.ToLower(strings.TrimSpace(c))
		if timeColumns[c] && !seenTime {
			c = "time"
			seenTime = true
		}
		cols[i] = c
	}
	if !seenTime {
		return nil, fmt.Errorf("parse bars: no time column in header %q", header)
	}

	rest := raw[len(header):]
	return append([]byte(strings.Join(cols, ",")), rest...), nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e11 {
			return time.UnixMilli(n).In(loc), nil
		}
		return time.Unix(n, 0).In(loc), nil
	}
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Day is one trading date's bars in time order.
type Day struct {
	Date string
	Bars []types.Bar
}

// GroupByDay splits time-ordered bars into trading dates in loc.
func GroupByDay(bars []types.Bar, loc *time.Location) []Day {
	var days []Day
	for _, b := range bars {
		date := b.Time.In(loc).Format("2006-01-02")
		if n := len(days); n == 0 || days[n-1].Date != date {
			days = append(days, Day{Date: date})
		}
		days[len(days)-1].Bars = append(days[len(days)-1].Bars, b)
	}
	return days
}
