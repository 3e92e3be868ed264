package interfaces

import "orb-trading-bot/internal/types"

// Recorder persists the append-only TradeResult table.
type Recorder interface {
	Record(res types.TradeResult) error
	ResultsForDate(date string) ([]types.TradeResult, error)
	Close() error
}
