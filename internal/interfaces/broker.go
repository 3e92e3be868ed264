package interfaces

import (
	"context"

	"orb-trading-bot/internal/types"
)

// EventSink receives market data and order updates from a broker's
// callback goroutines. Implementations must be safe for concurrent use.
type EventSink interface {
	PostTick(t types.Tick)
	PostBar(b types.Bar)
	PostAck(a types.OrderAck)
}

type Broker interface {
	Name() string

	// PlaceOrder submits req and returns once the broker has accepted or
	// refused it. Fills are reported later through the EventSink with
	// OrderAck.OrderID set to req.Tag.
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)

	// Start connects market data and order update streams to sink.
	Start(ctx context.Context, sink EventSink) error
	Stop(ctx context.Context)
}
