package holiday

import (
	"context"
	"testing"
	"time"

	"github.com/pcdogyu/market-dashboard/internal/market"
)

func TestRulesMatchFallbackTable(t *testing.T) {
	got, err := NewRules().Holidays(context.Background(), 2024, 2027)
	if err != nil {
		t.Fatalf("Holidays: %v", err)
	}
	set := make(map[market.Date]bool, len(got))
	for _, d := range got {
		set[d] = true
	}
	// Every built-in date must also come out of the rules.
	for _, d := range market.FallbackHolidays() {
		if !set[d] {
			t.Errorf("fallback date %s missing from rules", d)
		}
	}
	if len(got) != len(market.FallbackHolidays()) {
		t.Errorf("rules produced %d dates, fallback has %d", len(got), len(market.FallbackHolidays()))
	}
}

func TestNewYearOnSaturdayNotObservedOnFriday(t *testing.T) {
	// 2022-01-01 was a Saturday; NYSE stayed open on 2021-12-31.
	for _, d := range ForYear(2022) {
		if d.Month == time.December && d.Day == 31 {
			t.Fatalf("unexpected closure %s", d)
		}
	}
	for _, d := range ForYear(2021) {
		if d == (market.Date{Year: 2021, Month: time.December, Day: 31}) {
			t.Fatalf("2021-12-31 must not be a closure")
		}
	}
}

func TestJuneteenthStartsIn2022(t *testing.T) {
	for _, d := range ForYear(2021) {
		if d.Month == time.June {
			t.Fatalf("no June closure expected in 2021, got %s", d)
		}
	}
	want := market.Date{Year: 2022, Month: time.June, Day: 20}
	found := false
	for _, d := range ForYear(2022) {
		if d == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected observed Juneteenth %s", want)
	}
}

func TestRulesInvalidRange(t *testing.T) {
	if _, err := NewRules().Holidays(context.Background(), 2030, 2020); err == nil {
		t.Fatalf("expected error")
	}
}
