package sqlite

import (
	"database/sql"
	"errors"

	"github.com/pcdogyu/market-dashboard/internal/quote"
)

// LatestSession returns the newest stored session day and its points.
// ok is false when nothing has been stored yet.
func LatestSession(db *sql.DB) (sessionDate string, rows []quote.Quote, ok bool, err error) {
	err = db.QueryRow(`SELECT session_date FROM price_points ORDER BY session_date DESC LIMIT 1`).Scan(&sessionDate)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, err
	}
	rows, err = LoadSession(db, sessionDate)
	if err != nil {
		return "", nil, false, err
	}
	return sessionDate, rows, true, nil
}
