package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// CleanupOldData deletes session days older than retentionDays, measured in
// the market zone loc. Session dates are YYYY-MM-DD so lexicographic compare works.
func CleanupOldData(db *sql.DB, nowUTC time.Time, loc *time.Location, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, fmt.Errorf("retentionDays must be >= 1")
	}
	if loc == nil {
		loc = time.UTC
	}
	dateCutoff := nowUTC.In(loc).AddDate(0, 0, -retentionDays).Format("2006-01-02")

	res, err := db.Exec(`DELETE FROM price_points WHERE session_date < ?`, dateCutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if _, err := db.Exec(`DELETE FROM sessions WHERE session_date < ?`, dateCutoff); err != nil {
		return n, err
	}
	return n, nil
}
