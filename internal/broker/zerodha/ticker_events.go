package zerodha

import (
	"context"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"

	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/types"
)

func (tm *tickerManager) setupEventHandlers() {
	tm.ticker.OnConnect(tm.onConnect)
	tm.ticker.OnError(tm.onError)
	tm.ticker.OnClose(tm.onClose)
	tm.ticker.OnReconnect(tm.onReconnect)
	tm.ticker.OnNoReconnect(tm.onNoReconnect)
	tm.ticker.OnTick(tm.onTick)
	tm.ticker.OnOrderUpdate(tm.onOrderUpdate)
}

func (tm *tickerManager) onConnect() {
	tm.mu.Lock()
	tm.connected = true
	tokens := append([]uint32(nil), tm.tokens...)
	tm.mu.Unlock()

	logger.Info(context.Background(), "WebSocket connected successfully", "tokens", len(tokens))
	if err := tm.subscribe(tokens); err != nil {
		logger.ErrorWithErr(context.Background(), "Failed to subscribe after connect", err)
	}
}

func (tm *tickerManager) onError(err error) {
	logger.ErrorWithErr(context.Background(), "WebSocket error occurred", err)
}

func (tm *tickerManager) onClose(code int, reason string) {
	tm.mu.Lock()
	tm.connected = false
	tm.mu.Unlock()
	logger.Warn(context.Background(), "WebSocket connection closed",
		"code", code,
		"reason", reason,
	)
}

func (tm *tickerManager) onReconnect(attempt int, delay time.Duration) {
	logger.Info(context.Background(), "WebSocket reconnecting",
		"attempt", attempt,
		"delay", delay,
	)
}

func (tm *tickerManager) onNoReconnect(attempt int) {
	logger.Warn(context.Background(), "WebSocket reconnection failed - giving up",
		"attempts", attempt,
	)
}

func (tm *tickerManager) onTick(tick models.Tick) {
	if tm.mapper.getSymbol(tick.InstrumentToken) == "" {
		return
	}
	if t, ok := tickFromKite(tick); ok {
		tm.sink.PostTick(t)
	}
}

func (tm *tickerManager) onOrderUpdate(order kiteconnect.Order) {
	logger.Debug(context.Background(), "Order update received",
		"order_id", order.OrderID,
		"tag", order.Tag,
		"status", order.Status,
		"symbol", order.TradingSymbol,
	)
	if ack, ok := ackFromKite(order); ok {
		tm.sink.PostAck(ack)
	}
}

// tickFromKite drops ticks without a price. Ticks without an exchange
// timestamp are stamped on receipt.
func tickFromKite(tick models.Tick) (types.Tick, bool) {
	if tick.LastPrice <= 0 {
		return types.Tick{}, false
	}
	ts := tick.Timestamp.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return types.Tick{Time: ts, Price: tick.LastPrice}, true
}

// ackFromKite maps a Kite order update to an acknowledgement keyed by the
// client tag. Untagged orders and non-terminal statuses are skipped.
func ackFromKite(order kiteconnect.Order) (types.OrderAck, bool) {
	if order.Tag == "" {
		return types.OrderAck{}, false
	}
	ack := types.OrderAck{OrderID: order.Tag, Message: order.StatusMessage}
	switch order.Status {
	case "COMPLETE":
		ack.Status = types.OrderFilled
		ack.FillPrice = order.AveragePrice
	case "CANCELLED", "REJECTED":
		ack.Status = types.OrderCancelled
	default:
		return types.OrderAck{}, false
	}
	return ack, true
}
