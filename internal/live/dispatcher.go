package live

import (
	"context"

	"orb-trading-bot/internal/engine"
	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/trace"
	"orb-trading-bot/internal/types"
)

// dispatcher is the day's Submitter. Submit only enqueues; a separate
// goroutine places orders so a slow broker never stalls event processing.
// A refused order comes back as a CANCELLED ack through the event queue.
type dispatcher struct {
	broker interfaces.Broker
	queue  chan types.OrderReq
	post   func(types.OrderAck)
}

var _ engine.Submitter = (*dispatcher)(nil)

func newDispatcher(broker interfaces.Broker, size int, post func(types.OrderAck)) *dispatcher {
	return &dispatcher{
		broker: broker,
		queue:  make(chan types.OrderReq, size),
		post:   post,
	}
}

func (d *dispatcher) Submit(ctx context.Context, req types.OrderReq) {
	select {
	case d.queue <- req:
	default:
		logger.Error(ctx, "Order queue full, cancelling order", "tag", req.Tag)
		go d.post(types.OrderAck{OrderID: req.Tag, Status: types.OrderCancelled, Message: "order queue full"})
	}
}

func (d *dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.queue:
			d.place(ctx, req)
		}
	}
}

func (d *dispatcher) place(ctx context.Context, req types.OrderReq) {
	ctx, span := trace.StartSpan(ctx, "live.PlaceOrder")
	defer span.End()

	if _, err := d.broker.PlaceOrder(ctx, req); err != nil {
		logger.ErrorWithErr(ctx, "Order refused by broker", err, "tag", req.Tag, "side", string(req.Side))
		d.post(types.OrderAck{OrderID: req.Tag, Status: types.OrderCancelled, Message: err.Error()})
	}
}
