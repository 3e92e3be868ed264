// Package alpaca is the Alpaca broker: orders carry the client order id,
// fills arrive on the trade-update stream and prices on the stocks trade
// stream.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
	"github.com/shopspring/decimal"

	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/types"
)

type Params struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Symbol    string
	// Feed is the market data feed, "iex" unless set.
	Feed string
}

type orderAPI interface {
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
	StreamTradeUpdatesInBackground(ctx context.Context, handler func(alpaca.TradeUpdate))
}

type Broker struct {
	p      Params
	client orderAPI

	mu     sync.Mutex
	cancel context.CancelFunc
	data   *stream.StocksClient
}

var _ interfaces.Broker = (*Broker)(nil)

func New(p Params) (*Broker, error) {
	if p.APIKey == "" || p.APISecret == "" {
		return nil, errors.New("ALPACA_API_KEY and ALPACA_SECRET_KEY must be set")
	}
	if p.Feed == "" {
		p.Feed = marketdata.IEX
	}
	return &Broker{
		p: p,
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    p.APIKey,
			APISecret: p.APISecret,
			BaseURL:   p.BaseURL,
		}),
	}, nil
}

func (b *Broker) Name() string { return "ALPACA" }

func (b *Broker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	qty := decimal.NewFromInt(int64(req.Qty))
	orderReq := alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          alpaca.Buy,
		Type:          alpaca.Market,
		TimeInForce:   alpaca.Day,
		ClientOrderID: req.Tag,
	}
	if req.Side == types.SideSell {
		orderReq.Side = alpaca.Sell
	}
	if req.Type == types.OrderLimit {
		limitPrice := decimal.NewFromFloat(req.Price).Round(2)
		orderReq.Type = alpaca.Limit
		orderReq.LimitPrice = &limitPrice
	}

	order, err := b.client.PlaceOrder(orderReq)
	if err != nil {
		return types.OrderResp{}, fmt.Errorf("alpaca place order: %w", err)
	}
	logger.Debug(ctx, "Alpaca order accepted", "order_id", order.ID, "client_order_id", order.ClientOrderID)
	return types.OrderResp{OrderID: order.ID, Status: order.Status}, nil
}

// Start subscribes trade updates and the symbol's trades. Both streams run
// until Stop or until ctx is done.
func (b *Broker) Start(ctx context.Context, sink interfaces.EventSink) error {
	ctx, cancel := context.WithCancel(ctx)

	b.client.StreamTradeUpdatesInBackground(ctx, func(tu alpaca.TradeUpdate) {
		if ack, ok := ackFromUpdate(tu); ok {
			sink.PostAck(ack)
		}
	})

	data := stream.NewStocksClient(b.p.Feed,
		stream.WithCredentials(b.p.APIKey, b.p.APISecret),
		stream.WithTrades(func(t stream.Trade) {
			if t.Price > 0 {
				sink.PostTick(types.Tick{Time: t.Timestamp, Price: t.Price})
			}
		}, b.p.Symbol),
	)
	if err := data.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("connect alpaca market data: %w", err)
	}
	go func() {
		if err := <-data.Terminated(); err != nil {
			logger.ErrorWithErr(ctx, "Alpaca market data stream terminated", err)
		}
	}()

	b.mu.Lock()
	b.cancel, b.data = cancel, data
	b.mu.Unlock()
	logger.Info(ctx, "Alpaca streams started", "symbol", b.p.Symbol, "feed", b.p.Feed)
	return nil
}

func (b *Broker) Stop(ctx context.Context) {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel, b.data = nil, nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
		logger.Info(ctx, "Alpaca streams stopped")
	}
}

// ackFromUpdate maps terminal trade-update events to acknowledgements keyed
// by the client order id. Partial fills are not terminal.
func ackFromUpdate(tu alpaca.TradeUpdate) (types.OrderAck, bool) {
	if tu.Order.ClientOrderID == "" {
		return types.OrderAck{}, false
	}
	ack := types.OrderAck{OrderID: tu.Order.ClientOrderID, Message: tu.Event}
	switch tu.Event {
	case "fill":
		ack.Status = types.OrderFilled
		switch {
		case tu.Order.FilledAvgPrice != nil:
			ack.FillPrice = tu.Order.FilledAvgPrice.InexactFloat64()
		case tu.Price != nil:
			ack.FillPrice = tu.Price.InexactFloat64()
		}
	case "canceled", "rejected", "expired", "done_for_day":
		ack.Status = types.OrderCancelled
	default:
		return types.OrderAck{}, false
	}
	return ack, true
}
