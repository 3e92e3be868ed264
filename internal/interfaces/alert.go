package interfaces

import (
	"context"

	"orb-trading-bot/internal/types"
)

// Alerter is the escalation channel for conditions the engine will not
// resolve on its own.
type Alerter interface {
	Alert(ctx context.Context, a types.Alert) error
}
