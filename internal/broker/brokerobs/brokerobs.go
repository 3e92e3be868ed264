package brokerobs

import (
	"context"
	"fmt"

	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/trace"
	"orb-trading-bot/internal/types"
)

// observableBroker wraps a Broker with logging and tracing
type observableBroker struct {
	broker interfaces.Broker
}

var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

func (ob *observableBroker) Name() string {
	return ob.broker.Name()
}

// PlaceOrder places an order with observability
func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"broker", ob.broker.Name(),
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Qty,
		"type", req.Type,
		"tag", req.Tag,
	)

	resp, err := ob.broker.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"broker", ob.broker.Name(),
			"symbol", req.Symbol,
			"side", req.Side,
			"tag", req.Tag,
		)
		return types.OrderResp{}, err
	}

	logger.InfoSkip(ctx, 1, "Order placed successfully",
		"symbol", req.Symbol,
		"order_id", resp.OrderID,
		"tag", req.Tag,
		"status", resp.Status,
	)
	return resp, nil
}

// Start connects the broker streams with observability
func (ob *observableBroker) Start(ctx context.Context, sink interfaces.EventSink) error {
	ctx, span := trace.StartSpan(ctx, "broker.Start")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting broker", "broker", ob.broker.Name())

	if err := ob.broker.Start(ctx, sink); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to start broker", err, "broker", ob.broker.Name())
		return fmt.Errorf("broker start failed: %w", err)
	}

	logger.InfoSkip(ctx, 1, "Broker started successfully", "broker", ob.broker.Name())
	return nil
}

// Stop shuts down the broker with observability
func (ob *observableBroker) Stop(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "broker.Stop")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Stopping broker", "broker", ob.broker.Name())
	ob.broker.Stop(ctx)
	logger.InfoSkip(ctx, 1, "Broker stopped successfully")
}
