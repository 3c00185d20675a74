package market

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type stubSource struct {
	dates []Date
	err   error
	calls int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Holidays(_ context.Context, _, _ int) ([]Date, error) {
	s.calls++
	return s.dates, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildTradingCalendarFallbackOnError(t *testing.T) {
	src := &stubSource{err: errors.New("network down")}
	cal := BuildTradingCalendar(context.Background(), src, 2024, 2030, quietLogger())
	if src.calls != 1 {
		t.Fatalf("source called %d times", src.calls)
	}
	if !cal.Degraded() {
		t.Fatalf("expected degraded calendar")
	}
	if cal.Len() == 0 {
		t.Fatalf("fallback calendar must not be empty")
	}
	if !cal.IsHoliday(Date{2024, time.December, 25}) {
		t.Fatalf("2024-12-25 should be a holiday")
	}
	if cal.Source() != "builtin" {
		t.Fatalf("source = %q", cal.Source())
	}
}

func TestBuildTradingCalendarFallbackOnEmptyOrNil(t *testing.T) {
	for name, src := range map[string]HolidaySource{
		"nil":          nil,
		"empty":        &stubSource{},
		"out_of_range": &stubSource{dates: []Date{{1999, time.December, 24}}},
	} {
		cal := BuildTradingCalendar(context.Background(), src, 2024, 2027, quietLogger())
		if !cal.Degraded() || cal.Len() == 0 {
			t.Fatalf("%s: expected usable degraded calendar, got degraded=%v len=%d", name, cal.Degraded(), cal.Len())
		}
	}
}

func TestBuildTradingCalendarUsesSource(t *testing.T) {
	src := &stubSource{dates: []Date{
		{2028, time.January, 17},
		{2028, time.July, 4},
		{2029, time.December, 25},
		{2040, time.January, 1}, // outside requested range
	}}
	cal := BuildTradingCalendar(context.Background(), src, 2028, 2029, quietLogger())
	if cal.Degraded() {
		t.Fatalf("unexpected degraded calendar")
	}
	if cal.Len() != 3 {
		t.Fatalf("len = %d, want 3", cal.Len())
	}
	if from, to := cal.Coverage(); from != 2028 || to != 2029 {
		t.Fatalf("coverage = %d-%d", from, to)
	}
	if cal.IsHoliday(Date{2040, time.January, 1}) {
		t.Fatalf("date outside range must be dropped")
	}
}

func TestFallbackOutsideCoverageIsNotHoliday(t *testing.T) {
	cal := FallbackCalendar()
	// Christmas 2028 is a Monday; fallback has no data for 2028.
	d := Date{2028, time.December, 25}
	if cal.IsHoliday(d) {
		t.Fatalf("fallback must not invent holidays outside its range")
	}
	if cal.Covers(d) {
		t.Fatalf("2028 should be outside coverage")
	}
	if !cal.Covers(Date{2026, time.June, 1}) {
		t.Fatalf("2026 should be covered")
	}
	for _, h := range cal.Holidays() {
		if h.IsWeekend() {
			t.Fatalf("fallback holiday %s falls on a weekend", h)
		}
	}
}

func TestDateHelpers(t *testing.T) {
	d, err := ParseDate("2024-12-31")
	if err != nil {
		t.Fatal(err)
	}
	if got := d.AddDays(1).String(); got != "2025-01-01" {
		t.Fatalf("AddDays = %s", got)
	}
	if got := d.AddDays(-365).String(); got != "2023-12-31" {
		t.Fatalf("AddDays(-365) = %s", got)
	}
	if !(Date{2025, time.March, 8}).IsWeekend() {
		t.Fatalf("2025-03-08 is a Saturday")
	}
	if !d.Before(Date{2025, time.January, 1}) || d.Before(d) {
		t.Fatalf("Before ordering wrong")
	}
}
