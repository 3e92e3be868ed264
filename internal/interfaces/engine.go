package interfaces

import (
	"context"

	"orb-trading-bot/internal/engine"
	"orb-trading-bot/internal/types"
)

// Engine is one trading day's breakout state machine as the drivers see it.
type Engine interface {
	Date() string
	State() engine.State

	SetRange(ctx context.Context, rng engine.OpeningRange) error
	Skip(ctx context.Context, reason error) error

	OnBar(ctx context.Context, b types.Bar) error
	OnTick(ctx context.Context, t types.Tick) error
	OnAck(ctx context.Context, ack types.OrderAck) error

	ForceClose(ctx context.Context, price float64) error
	ExpireDrain(ctx context.Context) error
	Finish(ctx context.Context) []types.TradeResult

	Pending() []engine.PendingOrder
	Orders() []types.OrderReq
	Results() []types.TradeResult
}
