package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/pcdogyu/market-dashboard/internal/config"
	"github.com/pcdogyu/market-dashboard/internal/market"
	"github.com/pcdogyu/market-dashboard/internal/store/sqlite"
)

type cfgProvider interface {
	Get() config.Config
}

// runCleanupLoop prunes stored sessions older than the retention window once
// per market-zone day, after cleanup.run_at.
func runCleanupLoop(ctx context.Context, cfgp cfgProvider, db *sql.DB, loc *time.Location, logger *slog.Logger) {
	var lastRunDay string

	for {
		cfg := cfgp.Get()
		enabled := true
		if cfg.Cleanup.Enabled != nil {
			enabled = *cfg.Cleanup.Enabled
		}
		if !enabled {
			// Settings may change from the web UI.
			select {
			case <-ctx.Done():
				return
			case <-time.After(30 * time.Second):
				continue
			}
		}

		now := time.Now().In(loc)
		today := now.Format("2006-01-02")
		if lastRunDay != today && now.After(nextRunTimeToday(now, cfg.Cleanup.RunAt)) {
			n, err := sqlite.CleanupOldData(db, now.UTC(), loc, cfg.RetentionDays)
			if err != nil {
				logger.Error("cleanup", "err", err)
			} else {
				logger.Info("cleanup ok", "retention_days", cfg.RetentionDays, "deleted", n)
			}
			lastRunDay = today
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(1 * time.Minute):
		}
	}
}

// nextRunTimeToday returns runAt ("HH:MM") on now's day; 03:10 when unparsable.
func nextRunTimeToday(now time.Time, runAt string) time.Time {
	h, m := 3, 10
	if t, err := market.ParseTimeOfDay(runAt); err == nil {
		h, m = t.Hour, t.Minute
	}
	return time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
}
