package recorder

import (
	"errors"

	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/types"
)

// MultiRecorder writes every result to each recorder in turn and reads from
// the first.
type MultiRecorder struct {
	recs []interfaces.Recorder
}

func NewMultiRecorder(recs ...interfaces.Recorder) *MultiRecorder {
	return &MultiRecorder{recs: recs}
}

func (m *MultiRecorder) Record(res types.TradeResult) error {
	var errs []error
	for _, r := range m.recs {
		if err := r.Record(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiRecorder) ResultsForDate(date string) ([]types.TradeResult, error) {
	if len(m.recs) == 0 {
		return nil, nil
	}
	return m.recs[0].ResultsForDate(date)
}

func (m *MultiRecorder) Close() error {
	var errs []error
	for _, r := range m.recs {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
