// Package tradelog is the daily JSON-lines order journal. Order requests go
// to <dir>/<date>.txt and broker acknowledgements to <dir>/acks/<date>.txt,
// where <date> is the trading date in the configured session zone.
package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu  sync.Mutex
	loc = time.UTC
)

// Entry is one order request as it left the state machine.
type Entry struct {
	Time      string  `json:"time"`
	Date      string  `json:"date"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Purpose   string  `json:"purpose"` // ENTRY or EXIT
	Direction string  `json:"direction"`
	OrderID   string  `json:"order_id"`
	Qty       int     `json:"qty"`
	Price     float64 `json:"price"`
	Reason    string  `json:"reason,omitempty"`
}

// AckEntry is one broker acknowledgement as the reconciler saw it.
type AckEntry struct {
	Time      string  `json:"time"`
	Date      string  `json:"date"`
	OrderID   string  `json:"order_id"`
	Status    string  `json:"status"`
	FillPrice float64 `json:"fill_price,omitempty"`
	Applied   bool    `json:"applied"`
	Message   string  `json:"message,omitempty"`
}

// SetLocation sets the zone used for file names and timestamps.
func SetLocation(l *time.Location) {
	mu.Lock()
	defer mu.Unlock()
	if l != nil {
		loc = l
	}
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

// fileDate is the trading date an entry is filed under. Entries without one
// go to the current date in the session zone.
func fileDate(date string, now time.Time) string {
	if date != "" {
		return date
	}
	return now.Format("2006-01-02")
}

func ordersPath(date string) string { return filepath.Join(logDir(), date+".txt") }
func acksPath(date string) string { return filepath.Join(logDir(), "acks", date+".txt") }

func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().In(loc)
	e.Time = now.Format("2006-01-02 15:04:05")
	e.Date = fileDate(e.Date, now)
	return appendLine(ordersPath(e.Date), e)
}

func AppendAck(e AckEntry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().In(loc)
	e.Time = now.Format("2006-01-02 15:04:05")
	e.Date = fileDate(e.Date, now)
	return appendLine(acksPath(e.Date), e)
}

func appendLine(p string, v any) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// ReadOrders returns the order requests journaled on date. A missing file is
// an empty day. Malformed lines are skipped.
func ReadOrders(date string) ([]Entry, error) {
	var out []Entry
	err := readLines(ordersPath(date), func(b []byte) {
		var e Entry
		if json.Unmarshal(b, &e) == nil {
			out = append(out, e)
		}
	})
	return out, err
}

// ReadAcks returns the acknowledgements journaled on date.
func ReadAcks(date string) ([]AckEntry, error) {
	var out []AckEntry
	err := readLines(acksPath(date), func(b []byte) {
		var e AckEntry
		if json.Unmarshal(b, &e) == nil {
			out = append(out, e)
		}
	})
	return out, err
}

func readLines(p string, fn func([]byte)) error {
	mu.Lock()
	defer mu.Unlock()
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fn(sc.Bytes())
	}
	return sc.Err()
}

// FileJournal writes through the package-level daily files.
type FileJournal struct{}

func (FileJournal) Append(e Entry) error { return Append(e) }
func (FileJournal) AppendAck(e AckEntry) error { return AppendAck(e) }

// CompressOlder gzips journal files last modified more than retentionDays
// ago and removes the originals.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(logDir(), func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err == nil {
			_ = os.Remove(p)
		}
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, cpErr := io.Copy(gw, in)
	gwErr := gw.Close()
	outErr := out.Close()
	if cpErr != nil {
		return cpErr
	}
	if gwErr != nil {
		return gwErr
	}
	return outErr
}
