package zerodha

import (
	"context"
	"fmt"
	"sync"

	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
)

// tickerManager owns the Kite websocket. Ticks for mapped instruments and
// order updates carrying a client tag are forwarded to the sink.
type tickerManager struct {
	ticker      *kiteticker.Ticker
	apiKey      string
	accessToken string
	mapper      *instrumentMapper

	mu        sync.Mutex
	sink      interfaces.EventSink
	tokens    []uint32
	connected bool
}

var _ interfaces.TickerManager = (*tickerManager)(nil)

func newTickerManager(apiKey, accessToken string, mapper *instrumentMapper) *tickerManager {
	return &tickerManager{
		apiKey:      apiKey,
		accessToken: accessToken,
		mapper:      mapper,
	}
}

func (tm *tickerManager) Start(ctx context.Context, sink interfaces.EventSink) error {
	tm.mu.Lock()
	tm.sink = sink
	tm.ticker = kiteticker.New(tm.apiKey, tm.accessToken)
	tm.mu.Unlock()

	tm.setupEventHandlers()

	go func() {
		logger.Info(ctx, "Starting Zerodha WebSocket ticker")
		tm.ticker.Serve()
	}()
	return nil
}

func (tm *tickerManager) Stop(ctx context.Context) {
	if tm.ticker != nil {
		logger.Info(ctx, "Stopping Zerodha WebSocket ticker")
		tm.ticker.Stop()
	}
}

// Subscribe records tokens and subscribes them now if the socket is up.
// They are re-subscribed on every (re)connect.
func (tm *tickerManager) Subscribe(ctx context.Context, tokens []uint32) error {
	tm.mu.Lock()
	tm.tokens = append(tm.tokens, tokens...)
	connected := tm.connected
	tm.mu.Unlock()

	if !connected {
		logger.Debug(ctx, "Ticker not connected yet, subscription deferred", "tokens", tokens)
		return nil
	}
	return tm.subscribe(tokens)
}

func (tm *tickerManager) subscribe(tokens []uint32) error {
	if len(tokens) == 0 {
		return nil
	}
	if err := tm.ticker.Subscribe(tokens); err != nil {
		return fmt.Errorf("failed to subscribe to instruments: %w", err)
	}
	if err := tm.ticker.SetMode(kiteticker.ModeFull, tokens); err != nil {
		return fmt.Errorf("failed to set ticker mode: %w", err)
	}
	return nil
}
