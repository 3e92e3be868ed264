package eod

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/tradelog"
)

// FillRow is one order in the end-of-day fills report.
type FillRow struct {
	OrderID        string  `csv:"order_id"`
	Purpose        string  `csv:"purpose"`
	Direction      string  `csv:"direction"`
	Side           string  `csv:"side"`
	Qty            int     `csv:"qty"`
	Reason         string  `csv:"reason"`
	RequestedPrice float64 `csv:"requested_price"`
	Status         string  `csv:"status"`
	FillPrice      float64 `csv:"fill_price"`
	Slippage       float64 `csv:"slippage"` // positive when the fill was worse than requested
}

type summarizer struct{}

var _ interfaces.EodSummarizer = (*summarizer)(nil)

func NewSummarizer() interfaces.EodSummarizer {
	return &summarizer{}
}

func reportPath(date string) string {
	dir := "logs"
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		dir = v
	}
	return filepath.Join(dir, "eod", date+".csv")
}

// SummarizeDay joins the day's journaled orders with their applied
// acknowledgements and writes <log dir>/eod/<date>.csv. It returns "" when
// no orders were journaled.
func (s *summarizer) SummarizeDay(_ context.Context, date string) (string, error) {
	rows, err := FillRows(date)
	if err != nil || len(rows) == 0 {
		return "", err
	}

	out := reportPath(date)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return "", err
	}
	return out, nil
}

// FillRows builds the report rows for date in journal order.
func FillRows(date string) ([]*FillRow, error) {
	orders, err := tradelog.ReadOrders(date)
	if err != nil {
		return nil, err
	}
	acks, err := tradelog.ReadAcks(date)
	if err != nil {
		return nil, err
	}

	final := make(map[string]tradelog.AckEntry, len(acks))
	for _, a := range acks {
		if a.Applied {
			final[a.OrderID] = a
		}
	}

	rows := make([]*FillRow, 0, len(orders))
	for _, o := range orders {
		if o.Date != "" && o.Date != date {
			continue
		}
		row := &FillRow{
			OrderID:        o.OrderID,
			Purpose:        o.Purpose,
			Direction:      o.Direction,
			Side:           o.Side,
			Qty:            o.Qty,
			Reason:         o.Reason,
			RequestedPrice: o.Price,
			Status:         "SUBMITTED",
		}
		if a, ok := final[o.OrderID]; ok {
			row.Status = a.Status
			if a.Status == "FILLED" {
				row.FillPrice = a.FillPrice
				if row.FillPrice <= 0 {
					row.FillPrice = o.Price
				}
				row.Slippage = slippage(o.Side, o.Price, row.FillPrice)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func slippage(side string, requested, filled float64) float64 {
	r := decimal.NewFromFloat(requested)
	f := decimal.NewFromFloat(filled)
	if side == "SELL" {
		return r.Sub(f).InexactFloat64()
	}
	return f.Sub(r).InexactFloat64()
}
