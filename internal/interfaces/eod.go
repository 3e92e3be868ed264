package interfaces

import "context"

// EodScheduler fires the end-of-day deadline and the other daily session
// jobs on the wall clock.
type EodScheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

// EodSummarizer writes the end-of-day fills report for a trading date and
// returns its path, or "" when nothing was traded.
type EodSummarizer interface {
	SummarizeDay(ctx context.Context, date string) (string, error)
}
