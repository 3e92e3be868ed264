package engineobs

import (
	"context"
	"errors"
	"time"

	"orb-trading-bot/internal/engine"
	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/trace"
	"orb-trading-bot/internal/types"
)

type observableEngine struct {
	interfaces.Engine
}

var (
	_ interfaces.Engine = (*engine.Day)(nil)
	_ interfaces.Engine = (*observableEngine)(nil)
)

// Wrap adds spans and lifecycle logs around the calls that change a day's
// state outside the per-quote hot path. Bars and ticks pass straight
// through.
func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{Engine: eng}
}

func (oe *observableEngine) SetRange(ctx context.Context, rng engine.OpeningRange) error {
	ctx, span := trace.StartSpan(ctx, "engine.SetRange")
	defer span.End()

	err := oe.Engine.SetRange(ctx, rng)
	if err != nil && !isSkip(err) {
		logger.ErrorWithErrSkip(ctx, 1, "Opening range rejected", err, "date", oe.Date())
	}
	return err
}

func (oe *observableEngine) OnAck(ctx context.Context, ack types.OrderAck) error {
	ctx, span := trace.StartSpan(ctx, "engine.OnAck")
	defer span.End()

	before := oe.State()
	err := oe.Engine.OnAck(ctx, ack)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Order acknowledgement escalated", err,
			"date", oe.Date(),
			"order_id", ack.OrderID,
			"status", string(ack.Status),
		)
		return err
	}
	logger.DebugSkip(ctx, 1, "Order acknowledgement applied",
		"date", oe.Date(),
		"order_id", ack.OrderID,
		"status", string(ack.Status),
		"state_before", before.String(),
		"state_after", oe.State().String(),
	)
	return nil
}

func (oe *observableEngine) ForceClose(ctx context.Context, price float64) error {
	ctx, span := trace.StartSpan(ctx, "engine.ForceClose")
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 1, "End of day deadline", "date", oe.Date(), "state", oe.State().String(), "price", price)

	err := oe.Engine.ForceClose(ctx, price)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "End of day close escalated", err,
			"date", oe.Date(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
	logger.InfoSkip(ctx, 1, "End of day close applied",
		"date", oe.Date(),
		"state", oe.State().String(),
		"pending", len(oe.Pending()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (oe *observableEngine) ExpireDrain(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "engine.ExpireDrain")
	defer span.End()

	err := oe.Engine.ExpireDrain(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Drain window expired with unresolved orders", err, "date", oe.Date())
	}
	return err
}

func (oe *observableEngine) Finish(ctx context.Context) []types.TradeResult {
	ctx, span := trace.StartSpan(ctx, "engine.Finish")
	defer span.End()

	results := oe.Engine.Finish(ctx)
	logger.InfoSkip(ctx, 1, "Trading day finished",
		"date", oe.Date(),
		"state", oe.State().String(),
		"results", len(results),
		"orders", len(oe.Orders()),
	)
	return results
}

func isSkip(err error) bool {
	return errors.Is(err, engine.ErrNeutralRange) ||
		errors.Is(err, engine.ErrDegenerateRange) ||
		errors.Is(err, engine.ErrNoOpeningBar)
}
