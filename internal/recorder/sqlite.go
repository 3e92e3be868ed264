package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/types"
)

// SQLiteRecorder keeps trade results in a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(context.Background(), "SQLite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trade_results (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at INTEGER NOT NULL,
			date        TEXT NOT NULL,
			direction   TEXT NOT NULL,
			outcome     TEXT NOT NULL,
			exit_price  REAL NOT NULL,
			points      REAL NOT NULL,
			UNIQUE(date, direction)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_results_date ON trade_results(date)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Record appends res. Recording the same row twice is a no-op; a different
// row for an occupied date and direction is ErrConflictingResult.
func (r *SQLiteRecorder) Record(res types.TradeResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out, err := r.db.Exec(
		`INSERT INTO trade_results (recorded_at, date, direction, outcome, exit_price, points)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(date, direction) DO NOTHING`,
		time.Now().Unix(), res.Date, string(res.Direction), string(res.Outcome), res.ExitPrice, res.Points,
	)
	if err != nil {
		return fmt.Errorf("insert trade result: %w", err)
	}
	if n, err := out.RowsAffected(); err != nil || n == 1 {
		return err
	}

	var existing types.TradeResult
	row := r.db.QueryRow(
		`SELECT date, direction, outcome, exit_price, points FROM trade_results WHERE date = ? AND direction = ?`,
		res.Date, string(res.Direction),
	)
	if err := row.Scan(&existing.Date, &existing.Direction, &existing.Outcome, &existing.ExitPrice, &existing.Points); err != nil {
		return fmt.Errorf("read existing trade result: %w", err)
	}
	if existing != res {
		return fmt.Errorf("%w: %s %s is %s", ErrConflictingResult, res.Date, res.Direction, existing.Outcome)
	}
	return nil
}

// ResultsForDate returns the rows for date, long first.
func (r *SQLiteRecorder) ResultsForDate(date string) ([]types.TradeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(
		`SELECT date, direction, outcome, exit_price, points FROM trade_results
		 WHERE date = ? ORDER BY CASE direction WHEN 'LONG' THEN 0 ELSE 1 END, id`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("query trade results: %w", err)
	}
	defer rows.Close()

	var out []types.TradeResult
	for rows.Next() {
		var res types.TradeResult
		if err := rows.Scan(&res.Date, &res.Direction, &res.Outcome, &res.ExitPrice, &res.Points); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
