// Package alert delivers escalations that need a human: an unhedged
// position, an orphaned entry or a late fill.
package alert

import (
	"context"
	"errors"

	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/types"
)

var (
	_ interfaces.Alerter = (*LogAlerter)(nil)
	_ interfaces.Alerter = (*TelegramAlerter)(nil)
	_ interfaces.Alerter = (Multi)(nil)
)

// LogAlerter writes alerts to the structured log at warning level.
type LogAlerter struct{}

func NewLogAlerter() *LogAlerter { return &LogAlerter{} }

func (LogAlerter) Alert(ctx context.Context, a types.Alert) error {
	logger.Risk(ctx, a.Symbol, a.Kind,
		"date", a.Date,
		"message", a.Message,
		"time", a.Time.Format("2006-01-02 15:04:05"),
	)
	return nil
}

// Multi sends to every alerter and joins their errors.
type Multi []interfaces.Alerter

func (m Multi) Alert(ctx context.Context, a types.Alert) error {
	var errs []error
	for _, al := range m {
		if err := al.Alert(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
