package parquet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"
)

var _ port.HistoryExporter = (*Exporter)(nil)

// ClosedPositionRecord is the on-disk schema of one closed position. Amounts
// are kept as decimal strings so nothing is rounded on the way out.
type ClosedPositionRecord struct {
	Day       string `parquet:"day"`
	Symbol    string `parquet:"symbol"`
	Side      string `parquet:"side"`
	Qty       string `parquet:"qty"`
	PrevClose string `parquet:"p_close"`
	Entry     string `parquet:"entry"`
	Close     string `parquet:"close"`
	PnL       string `parquet:"pnl"`
	DayPnL    string `parquet:"day_pnl"`
	Opened    string `parquet:"opened"`
	Closed    string `parquet:"closed"`
	Overnight bool   `parquet:"overnight"`
}

// Exporter writes closed positions to <dir>/closed/<YYYY-MM-DD>.parquet.
type Exporter struct {
	Dir string
}

func NewExporter(dir string) *Exporter {
	return &Exporter{Dir: dir}
}

func (e *Exporter) path(day time.Time) string {
	return filepath.Join(e.Dir, "closed", day.Format("2006-01-02")+".parquet")
}

// ExportClosedPositions merges rows into the day's file and returns its path.
// Re-exporting the same rows leaves the file unchanged.
func (e *Exporter) ExportClosedPositions(ctx context.Context, day time.Time, rows []model.ClosedPosition) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := e.path(day)
	existing, err := readRecords(path)
	if err != nil {
		return "", err
	}

	dayStr := day.Format("2006-01-02")
	incoming := make([]ClosedPositionRecord, 0, len(rows))
	for _, p := range rows {
		incoming = append(incoming, ClosedPositionRecord{
			Day:       dayStr,
			Symbol:    p.Symbol,
			Side:      p.Side,
			Qty:       p.Qty.String(),
			PrevClose: p.PrevClose.String(),
			Entry:     p.Entry.String(),
			Close:     p.Close.String(),
			PnL:       p.PnL.String(),
			DayPnL:    p.DayPnL.String(),
			Opened:    p.Opened,
			Closed:    p.Closed,
			Overnight: p.Overnight,
		})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := parquet.WriteFile(path, mergeRecords(existing, incoming)); err != nil {
		return "", err
	}
	return path, nil
}

// ReadClosedPositions returns the records exported for day.
func (e *Exporter) ReadClosedPositions(day time.Time) ([]ClosedPositionRecord, error) {
	return readRecords(e.path(day))
}

func readRecords(path string) ([]ClosedPositionRecord, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return parquet.ReadFile[ClosedPositionRecord](path)
}

// mergeRecords deduplicates by (symbol, side, opened, closed, qty), preferring
// incoming rows, and orders by close time then symbol.
func mergeRecords(existing, incoming []ClosedPositionRecord) []ClosedPositionRecord {
	type key struct {
		symbol, side, opened, closed, qty string
	}
	keyOf := func(r ClosedPositionRecord) key {
		return key{r.Symbol, r.Side, r.Opened, r.Closed, r.Qty}
	}
	m := make(map[key]ClosedPositionRecord, len(existing)+len(incoming))
	for _, r := range existing {
		m[keyOf(r)] = r
	}
	for _, r := range incoming {
		m[keyOf(r)] = r
	}
	out := make([]ClosedPositionRecord, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Closed != out[j].Closed {
			return out[i].Closed < out[j].Closed
		}
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Opened < out[j].Opened
	})
	return out
}
