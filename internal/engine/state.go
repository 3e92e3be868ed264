package engine

import "fmt"

// State is the per-day lifecycle of the breakout position.
type State int

const (
	NoRange State = iota
	RangeSet
	EntryPending
	InLong
	InShort
	ExitPending
	Closed
)

var stateNames = [...]string{
	NoRange:      "NO_RANGE",
	RangeSet:     "RANGE_SET",
	EntryPending: "ENTRY_PENDING",
	InLong:       "IN_LONG",
	InShort:      "IN_SHORT",
	ExitPending:  "EXIT_PENDING",
	Closed:       "CLOSED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// transitions lists every allowed edge. Anything else is a bug in the caller.
//
//	ENTRY_PENDING -> RANGE_SET   entry cancelled, re-armed
//	ENTRY_PENDING -> CLOSED      entry orphaned at the deadline
//	EXIT_PENDING  -> IN_LONG/IN_SHORT  exit cancelled, position unhedged
var transitions = map[State][]State{
	NoRange:      {RangeSet, Closed},
	RangeSet:     {EntryPending, InLong, InShort, Closed},
	EntryPending: {RangeSet, InLong, InShort, Closed},
	InLong:       {ExitPending, Closed},
	InShort:      {ExitPending, Closed},
	ExitPending:  {InLong, InShort, Closed},
	Closed:       {},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
