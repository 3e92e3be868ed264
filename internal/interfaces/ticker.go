package interfaces

import "context"

// TickerManager owns a broker's streaming connection and forwards what it
// receives to an EventSink.
type TickerManager interface {
	Start(ctx context.Context, sink EventSink) error
	Stop(ctx context.Context)
	Subscribe(ctx context.Context, tokens []uint32) error
}
