package sqlite

import (
	"database/sql"
	"time"

	"github.com/pcdogyu/market-dashboard/internal/quote"
)

// InsertQuotes stores one tick's quotes under sessionDate. Re-inserting the
// same (session, ts, symbol) overwrites the price.
func InsertQuotes(db *sql.DB, sessionDate string, rows []quote.Quote) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO price_points(session_date, ts_utc, symbol, price, prev_close)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_date, ts_utc, symbol) DO UPDATE SET
			price=excluded.price,
			prev_close=excluded.prev_close
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		var pc any
		if r.PrevClose != 0 {
			pc = r.PrevClose
		}
		if _, err := stmt.Exec(sessionDate, fixedRFC3339Nano(r.TS), r.Symbol, r.Price, pc); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertSession records the window of a session day. The archive columns
// are left untouched.
func UpsertSession(db *sql.DB, sessionDate string, windowOpen, windowClose time.Time) error {
	_, err := db.Exec(`
		INSERT INTO sessions(session_date, window_open_utc, window_close_utc)
		VALUES (?, ?, ?)
		ON CONFLICT(session_date) DO UPDATE SET
			window_open_utc=excluded.window_open_utc,
			window_close_utc=excluded.window_close_utc
	`, sessionDate, fixedRFC3339Nano(windowOpen), fixedRFC3339Nano(windowClose))
	return err
}

func MarkArchived(db *sql.DB, sessionDate, path string, atUTC time.Time) error {
	_, err := db.Exec(`
		UPDATE sessions SET archive_path = ?, archived_at_utc = ?
		WHERE session_date = ?
	`, path, fixedRFC3339Nano(atUTC), sessionDate)
	return err
}
