// Package paper is the DRY_RUN broker. Orders are acknowledged through the
// same EventSink callback path as a real broker, so the day sees the same
// asynchronous fills it would see live.
package paper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/types"
)

var ErrNotStarted = errors.New("paper broker not started")

type Option func(*Broker)

// WithBars makes the broker its own market data feed: bars are posted to
// the sink in order, pace apart.
func WithBars(bars []types.Bar, pace time.Duration) Option {
	return func(b *Broker) {
		b.bars = bars
		b.pace = pace
	}
}

// WithFillDelay delays every acknowledgement by d.
func WithFillDelay(d time.Duration) Option {
	return func(b *Broker) { b.fillDelay = d }
}

// WithReject cancels every order instead of filling it.
func WithReject(reason string) Option {
	return func(b *Broker) { b.reject = reason }
}

// Broker fills market orders at the last price it has seen and limit orders
// at their limit price.
type Broker struct {
	bars      []types.Bar
	pace      time.Duration
	fillDelay time.Duration
	reject    string

	mu     sync.Mutex
	sink   interfaces.EventSink
	last   float64
	cancel context.CancelFunc
	wg     sync.WaitGroup
	orders []types.OrderReq
}

var _ interfaces.Broker = (*Broker)(nil)

func New(opts ...Option) *Broker {
	b := &Broker{}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Broker) Name() string { return "PAPER" }

// Mark sets the price market orders fill at.
func (b *Broker) Mark(price float64) {
	if price <= 0 {
		return
	}
	b.mu.Lock()
	b.last = price
	b.mu.Unlock()
}

// Orders returns every order accepted so far.
func (b *Broker) Orders() []types.OrderReq {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.OrderReq(nil), b.orders...)
}

func (b *Broker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	b.mu.Lock()
	sink := b.sink
	last := b.last
	if sink != nil {
		b.orders = append(b.orders, req)
	}
	b.mu.Unlock()
	if sink == nil {
		return types.OrderResp{}, ErrNotStarted
	}

	ack := types.OrderAck{OrderID: req.Tag, Status: types.OrderFilled, FillPrice: last}
	if req.Type == types.OrderLimit {
		ack.FillPrice = req.Price
	}
	if b.reject != "" {
		ack = types.OrderAck{OrderID: req.Tag, Status: types.OrderCancelled, Message: b.reject}
	}

	brokerID := uuid.NewString()
	logger.Debug(ctx, "Paper order accepted",
		"order_id", brokerID,
		"tag", req.Tag,
		"side", string(req.Side),
		"qty", req.Qty,
		"fill_price", ack.FillPrice,
	)

	if b.fillDelay > 0 {
		time.AfterFunc(b.fillDelay, func() { sink.PostAck(ack) })
	} else {
		go sink.PostAck(ack)
	}
	return types.OrderResp{OrderID: brokerID, Status: "accepted"}, nil
}

// Start attaches sink and, when bars were configured, begins posting them.
func (b *Broker) Start(ctx context.Context, sink interfaces.EventSink) error {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.sink = sink
	b.cancel = cancel
	b.mu.Unlock()

	if len(b.bars) == 0 {
		logger.Info(ctx, "Paper broker started without a feed")
		return nil
	}
	b.wg.Add(1)
	go b.feed(ctx, sink)
	logger.Info(ctx, "Paper broker started", "bars", len(b.bars), "pace", b.pace)
	return nil
}

func (b *Broker) feed(ctx context.Context, sink interfaces.EventSink) {
	defer b.wg.Done()
	for _, bar := range b.bars {
		if b.pace > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.pace):
			}
		} else if ctx.Err() != nil {
			return
		}
		b.Mark(bar.Close)
		sink.PostBar(bar)
	}
	logger.Info(ctx, "Paper feed exhausted")
}

func (b *Broker) Stop(ctx context.Context) {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	b.wg.Wait()
	logger.Info(ctx, "Paper broker stopped")
}
