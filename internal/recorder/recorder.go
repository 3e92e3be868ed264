// Package recorder persists the append-only TradeResult table. A day holds
// at most one row per direction.
package recorder

import (
	"errors"

	"orb-trading-bot/internal/interfaces"
)

// ErrConflictingResult is returned when a date and direction already hold a
// different result.
var ErrConflictingResult = errors.New("conflicting result already recorded")

var (
	_ interfaces.Recorder = (*SQLiteRecorder)(nil)
	_ interfaces.Recorder = (*CSVRecorder)(nil)
	_ interfaces.Recorder = (*NoopRecorder)(nil)
	_ interfaces.Recorder = (*MultiRecorder)(nil)
)
