package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/pcdogyu/market-dashboard/internal/quote"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sub", "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func ts(d, h, m int) time.Time { return time.Date(2025, 3, d, h, m, 0, 0, time.UTC) }

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestInsertAndLoadSession(t *testing.T) {
	db := openTestDB(t)

	if err := InsertQuotes(db, "2025-03-03", []quote.Quote{
		{Symbol: "SPY", Price: 101, PrevClose: 100, TS: ts(3, 14, 35)},
		{Symbol: "QQQ", Price: 401, TS: ts(3, 14, 35)},
	}); err != nil {
		t.Fatalf("InsertQuotes: %v", err)
	}
	if err := InsertQuotes(db, "2025-03-03", []quote.Quote{
		{Symbol: "SPY", Price: 100.5, PrevClose: 100, TS: ts(3, 14, 30)},
	}); err != nil {
		t.Fatalf("InsertQuotes: %v", err)
	}
	// Overwrite.
	if err := InsertQuotes(db, "2025-03-03", []quote.Quote{
		{Symbol: "SPY", Price: 102, PrevClose: 100, TS: ts(3, 14, 35)},
	}); err != nil {
		t.Fatalf("InsertQuotes: %v", err)
	}
	if err := InsertQuotes(db, "2025-03-04", []quote.Quote{
		{Symbol: "SPY", Price: 103, TS: ts(4, 14, 30)},
	}); err != nil {
		t.Fatalf("InsertQuotes: %v", err)
	}

	rows, err := LoadSession(db, "2025-03-03")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(rows), rows)
	}
	if !rows[0].TS.Equal(ts(3, 14, 30)) || rows[0].Price != 100.5 {
		t.Fatalf("not ordered by time: %+v", rows[0])
	}
	if rows[1].Symbol != "QQQ" || rows[1].PrevClose != 0 {
		t.Fatalf("unexpected row: %+v", rows[1])
	}
	if rows[2].Symbol != "SPY" || rows[2].Price != 102 {
		t.Fatalf("overwrite lost: %+v", rows[2])
	}
}

func TestLatestSessionAndList(t *testing.T) {
	db := openTestDB(t)

	if _, _, ok, err := LatestSession(db); err != nil || ok {
		t.Fatalf("empty db: ok=%v err=%v", ok, err)
	}

	for _, d := range []int{3, 4, 5} {
		date := time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		if err := InsertQuotes(db, date, []quote.Quote{
			{Symbol: "SPY", Price: 100 + float64(d), TS: ts(d, 14, 30)},
			{Symbol: "DIA", Price: 400 + float64(d), TS: ts(d, 14, 30)},
		}); err != nil {
			t.Fatalf("InsertQuotes: %v", err)
		}
	}
	if err := UpsertSession(db, "2025-03-05", ts(5, 14, 30), ts(5, 21, 0)); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	if err := MarkArchived(db, "2025-03-05", "/tmp/2025-03-05.parquet", ts(5, 21, 0)); err != nil {
		t.Fatalf("MarkArchived: %v", err)
	}

	date, rows, ok, err := LatestSession(db)
	if err != nil || !ok {
		t.Fatalf("LatestSession: ok=%v err=%v", ok, err)
	}
	if date != "2025-03-05" || len(rows) != 2 {
		t.Fatalf("latest = %s (%d rows)", date, len(rows))
	}

	list, err := ListSessions(db, 2)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 || list[0].SessionDate != "2025-03-05" || list[1].SessionDate != "2025-03-04" {
		t.Fatalf("list = %+v", list)
	}
	if list[0].Points != 2 || list[0].Symbols != 2 || list[0].ArchivePath != "/tmp/2025-03-05.parquet" {
		t.Fatalf("summary = %+v", list[0])
	}
	if list[1].ArchivePath != "" {
		t.Fatalf("unarchived session has path %q", list[1].ArchivePath)
	}
}

func TestCleanupOldData(t *testing.T) {
	db := openTestDB(t)
	for _, d := range []int{1, 10, 20} {
		date := time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		if err := InsertQuotes(db, date, []quote.Quote{{Symbol: "SPY", Price: 1, TS: ts(d, 15, 0)}}); err != nil {
			t.Fatalf("InsertQuotes: %v", err)
		}
		if err := UpsertSession(db, date, ts(d, 14, 30), ts(d, 21, 0)); err != nil {
			t.Fatalf("UpsertSession: %v", err)
		}
	}

	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2025-03-21 02:00 UTC is 2025-03-20 in Chicago; cutoff is 2025-03-10.
	n, err := CleanupOldData(db, time.Date(2025, 3, 21, 2, 0, 0, 0, time.UTC), chicago, 10)
	if err != nil {
		t.Fatalf("CleanupOldData: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d, want 1", n)
	}
	list, err := ListSessions(db, 10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 || list[1].SessionDate != "2025-03-10" {
		t.Fatalf("remaining = %+v", list)
	}

	if _, err := CleanupOldData(db, time.Now(), chicago, 0); err == nil {
		t.Fatalf("expected error for retention 0")
	}
}

func TestFixedRFC3339NanoOrdering(t *testing.T) {
	a := fixedRFC3339Nano(time.Date(2025, 3, 3, 14, 30, 0, 5, time.UTC))
	b := fixedRFC3339Nano(time.Date(2025, 3, 3, 14, 30, 0, 40, time.UTC))
	if !(a < b) || len(a) != len(b) {
		t.Fatalf("ordering broken: %s vs %s", a, b)
	}
	got, err := parseFixed(a)
	if err != nil || got.Nanosecond() != 5 {
		t.Fatalf("parseFixed(%s) = %v, %v", a, got, err)
	}
}
