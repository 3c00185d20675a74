package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/pcdogyu/market-dashboard/internal/quote"
)

// LoadSession returns the points of one session day, oldest first.
func LoadSession(db *sql.DB, sessionDate string) ([]quote.Quote, error) {
	rows, err := db.Query(`
		SELECT ts_utc, symbol, price, COALESCE(prev_close, 0)
		FROM price_points
		WHERE session_date = ?
		ORDER BY ts_utc ASC, symbol ASC
	`, sessionDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []quote.Quote
	for rows.Next() {
		var (
			ts string
			q  quote.Quote
		)
		if err := rows.Scan(&ts, &q.Symbol, &q.Price, &q.PrevClose); err != nil {
			return nil, err
		}
		t, err := parseFixed(ts)
		if err != nil {
			return nil, fmt.Errorf("price_points ts %q: %w", ts, err)
		}
		q.TS = t
		out = append(out, q)
	}
	return out, rows.Err()
}

// SessionSummary describes one stored session day.
type SessionSummary struct {
	SessionDate string `json:"session_date"`
	Points      int    `json:"points"`
	Symbols     int    `json:"symbols"`
	FirstTSUTC  string `json:"first_ts_utc"`
	LastTSUTC   string `json:"last_ts_utc"`
	ArchivePath string `json:"archive_path,omitempty"`
}

// ListSessions returns the most recent session days, newest first.
func ListSessions(db *sql.DB, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := db.Query(`
		SELECT p.session_date, COUNT(*), COUNT(DISTINCT p.symbol),
			MIN(p.ts_utc), MAX(p.ts_utc), COALESCE(s.archive_path, '')
		FROM price_points p
		LEFT JOIN sessions s ON s.session_date = p.session_date
		GROUP BY p.session_date
		ORDER BY p.session_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SessionSummary, 0, limit)
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.SessionDate, &s.Points, &s.Symbols, &s.FirstTSUTC, &s.LastTSUTC, &s.ArchivePath); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
