package engine

import "errors"

var (
	// Day skipped: no bar at the configured opening time.
	ErrNoOpeningBar = errors.New("no opening bar for the day")
	// Day skipped: the opening bar closed where it opened.
	ErrNeutralRange = errors.New("opening range is neutral")
	// Day skipped: high <= low, no risk can be derived.
	ErrDegenerateRange = errors.New("opening range is degenerate")

	ErrRangeAlreadySet   = errors.New("opening range already set for the day")
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// Escalations. A position may be live at the broker without a working
	// exit; the machine suspends evaluation and never retries on its own.
	ErrUnhedgedPosition = errors.New("exit cancelled with position open")
	ErrOrphanedEntry    = errors.New("entry unresolved at end of day")
	ErrLateFill         = errors.New("fill for an order the day no longer tracks")
)
