package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/metrics"
	"orb-trading-bot/internal/tradelog"
	"orb-trading-bot/internal/types"
)

// Submitter hands an order to a broker and returns immediately. The outcome
// arrives later as an OrderAck keyed by req.Tag. Implementations must not
// call back into the Day from Submit.
type Submitter interface {
	Submit(ctx context.Context, req types.OrderReq)
}

// Journal persists order requests and acknowledgements.
type Journal interface {
	Append(e tradelog.Entry) error
	AppendAck(e tradelog.AckEntry) error
}

// NewOrderID returns a client order id short enough for broker tag fields
// (Kite caps tags at 20 characters).
func NewOrderID() string {
	return "ORB" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// orderExecutor builds, journals and dispatches order requests.
type orderExecutor struct {
	symbol    string
	qty       int
	entryType types.OrderType
	sub       Submitter
	journal   Journal
	newID     func() string
	orders    []types.OrderReq
}

func newOrderExecutor(p Params, sub Submitter) *orderExecutor {
	newID := p.NewOrderID
	if newID == nil {
		newID = NewOrderID
	}
	entryType := p.EntryType
	if entryType == "" {
		entryType = types.OrderMarket
	}
	qty := p.Qty
	if qty <= 0 {
		qty = 1
	}
	return &orderExecutor{
		symbol:    p.Symbol,
		qty:       qty,
		entryType: entryType,
		sub:       sub,
		journal:   p.Journal,
		newID:     newID,
	}
}

// build records an order request. Entries honour the configured order type,
// limit entries resting at the range boundary; exits are always market
// orders. price is the reference level the request was produced from.
func (oe *orderExecutor) build(ctx context.Context, date string, purpose Purpose, dir types.Direction, side types.Side, price float64, reason string) types.OrderReq {
	req := types.OrderReq{
		Symbol: oe.symbol,
		Side:   side,
		Qty:    oe.qty,
		Type:   types.OrderMarket,
		Tag:    oe.newID(),
	}
	if purpose == PurposeEntry && oe.entryType == types.OrderLimit {
		req.Type = types.OrderLimit
		req.Price = price
	}
	oe.orders = append(oe.orders, req)

	metrics.IncOrder(string(purpose), string(side))
	logger.Trade(ctx, oe.symbol, string(side), req.Qty, price, req.Tag,
		"purpose", string(purpose),
		"direction", string(dir),
		"order_type", string(req.Type),
		"reason", reason,
	)

	if oe.journal != nil {
		if err := oe.journal.Append(tradelog.Entry{
			Date:      date,
			Symbol:    oe.symbol,
			Side:      string(side),
			Purpose:   string(purpose),
			Direction: string(dir),
			OrderID:   req.Tag,
			Qty:       req.Qty,
			Price:     price,
			Reason:    reason,
		}); err != nil {
			logger.ErrorWithErr(ctx, "Failed to journal order", err, "order_id", req.Tag)
		}
	}
	return req
}

// send dispatches req when the day runs against a broker. Synchronous days
// have no submitter and fill at the reference price instead.
func (oe *orderExecutor) send(ctx context.Context, req types.OrderReq) {
	if oe.sub != nil {
		oe.sub.Submit(ctx, req)
	}
}

func (oe *orderExecutor) journalAck(ctx context.Context, date string, ack types.OrderAck, applied bool) {
	if oe.journal == nil {
		return
	}
	if err := oe.journal.AppendAck(tradelog.AckEntry{
		Date:      date,
		OrderID:   ack.OrderID,
		Status:    string(ack.Status),
		FillPrice: ack.FillPrice,
		Applied:   applied,
		Message:   ack.Message,
	}); err != nil {
		logger.ErrorWithErr(ctx, "Failed to journal ack", err, "order_id", ack.OrderID)
	}
}
