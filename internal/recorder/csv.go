package recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gocarina/gocsv"

	"orb-trading-bot/internal/types"
)

// CSVRecorder appends results to a CSV file with a header row.
type CSVRecorder struct {
	path string
	mu   sync.Mutex
}

func NewCSVRecorder(path string) (*CSVRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &CSVRecorder{path: path}, nil
}

func (r *CSVRecorder) Record(res types.TradeResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.readAll()
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Date != res.Date || e.Direction != res.Direction {
			continue
		}
		if *e != res {
			return fmt.Errorf("%w: %s %s is %s", ErrConflictingResult, res.Date, res.Direction, e.Outcome)
		}
		return nil
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	rows := []*types.TradeResult{&res}
	if len(existing) == 0 {
		if info, err := f.Stat(); err == nil && info.Size() == 0 {
			return gocsv.Marshal(&rows, f)
		}
	}
	return gocsv.MarshalWithoutHeaders(&rows, f)
}

func (r *CSVRecorder) ResultsForDate(date string) ([]types.TradeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return nil, err
	}
	var out []types.TradeResult
	for _, e := range all {
		if e.Date == date {
			out = append(out, *e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Direction == types.Long && out[j].Direction != types.Long
	})
	return out, nil
}

func (r *CSVRecorder) readAll() ([]*types.TradeResult, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		return nil, nil
	}
	var rows []*types.TradeResult
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	return rows, nil
}

func (r *CSVRecorder) Close() error { return nil }
