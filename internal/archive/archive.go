// Package archive writes finished sessions to Parquet files, one per day.
package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/pcdogyu/market-dashboard/internal/store/sqlite"
)

// ErrEmptySession is returned when a session has no stored points.
var ErrEmptySession = errors.New("archive: session has no points")

// PointRecord is one row of an archive file.
type PointRecord struct {
	SessionDate string  `parquet:"session_date"`
	Symbol      string  `parquet:"symbol"`
	Timestamp   int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price       float64 `parquet:"price"`
	PrevClose   float64 `parquet:"prev_close"`
}

type Writer struct {
	db  *sql.DB
	dir string
}

func NewWriter(db *sql.DB, dir string) *Writer {
	return &Writer{db: db, dir: dir}
}

// Path is the file a session is archived to: <dir>/<YYYY-MM-DD>.parquet.
func (w *Writer) Path(sessionDate string) string {
	return filepath.Join(w.dir, sessionDate+".parquet")
}

// ArchiveSession writes every stored point of sessionDate and records the
// file path on the session row. An existing file is replaced.
func (w *Writer) ArchiveSession(sessionDate string) (string, error) {
	rows, err := sqlite.LoadSession(w.db, sessionDate)
	if err != nil {
		return "", fmt.Errorf("load session %s: %w", sessionDate, err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptySession, sessionDate)
	}

	records := make([]PointRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, PointRecord{
			SessionDate: sessionDate,
			Symbol:      r.Symbol,
			Timestamp:   r.TS.UnixMilli(),
			Price:       r.Price,
			PrevClose:   r.PrevClose,
		})
	}

	path := w.Path(sessionDate)
	if err := writeFile(path, records); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := sqlite.MarkArchived(w.db, sessionDate, path, time.Now().UTC()); err != nil {
		return path, fmt.Errorf("mark archived: %w", err)
	}
	return path, nil
}

// writeFile writes to a temp file first so readers never see a partial archive.
func writeFile(path string, records []PointRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ReadFile(path string) ([]PointRecord, error) {
	return parquet.ReadFile[PointRecord](path)
}
