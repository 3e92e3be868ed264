package recorder

import "orb-trading-bot/internal/types"

// NoopRecorder is used when no result store is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Record(_ types.TradeResult) error { return nil }
func (n *NoopRecorder) ResultsForDate(_ string) ([]types.TradeResult, error) { return nil, nil }
func (n *NoopRecorder) Close() error { return nil }
