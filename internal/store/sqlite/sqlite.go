package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite uses a file path DSN.
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func Migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,

		`CREATE TABLE IF NOT EXISTS price_points (
			session_date TEXT NOT NULL, -- YYYY-MM-DD in the market zone
			ts_utc TEXT NOT NULL,
			symbol TEXT NOT NULL,
			price REAL NOT NULL,
			prev_close REAL,
			PRIMARY KEY (session_date, ts_utc, symbol)
		);`,

		`CREATE TABLE IF NOT EXISTS sessions (
			session_date TEXT PRIMARY KEY,
			window_open_utc TEXT NOT NULL,
			window_close_utc TEXT NOT NULL,
			archive_path TEXT,
			archived_at_utc TEXT
		);`,
	}

	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
