package market

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Date is a calendar day without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool { return d == Date{} }

// Midnight returns the start of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays normalizes across month/year ends.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// IsWeekend reports Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// HolidaySource supplies full-day market closures for a range of years.
type HolidaySource interface {
	Name() string
	Holidays(ctx context.Context, fromYear, toYear int) ([]Date, error)
}

// TradingCalendar is the holiday set plus the fixed weekend pattern.
// It is read-only after construction.
type TradingCalendar struct {
	holidays map[Date]struct{}
	source   string
	fromYear int
	toYear   int
	degraded bool
}

// NewTradingCalendar keeps only the dates inside [fromYear, toYear].
func NewTradingCalendar(source string, fromYear, toYear int, dates []Date, degraded bool) *TradingCalendar {
	set := make(map[Date]struct{}, len(dates))
	for _, d := range dates {
		if d.Year < fromYear || d.Year > toYear {
			continue
		}
		set[d] = struct{}{}
	}
	return &TradingCalendar{
		holidays: set,
		source:   source,
		fromYear: fromYear,
		toYear:   toYear,
		degraded: degraded,
	}
}

// BuildTradingCalendar asks src for holidays in [fromYear, toYear] and falls
// back to the built-in NYSE table when src is nil, fails, or returns nothing.
// It never fails; a degraded calendar is logged as a warning.
func BuildTradingCalendar(ctx context.Context, src HolidaySource, fromYear, toYear int, logger *slog.Logger) *TradingCalendar {
	if logger == nil {
		logger = slog.Default()
	}
	if src == nil {
		cal := FallbackCalendar()
		logger.Warn("holiday source not configured; using built-in holiday list with reduced accuracy",
			"coverage_from", cal.fromYear, "coverage_to", cal.toYear)
		return cal
	}

	dates, err := src.Holidays(ctx, fromYear, toYear)
	if err != nil {
		cal := FallbackCalendar()
		logger.Warn("holiday source unavailable; using built-in holiday list with reduced accuracy",
			"source", src.Name(), "err", err, "coverage_from", cal.fromYear, "coverage_to", cal.toYear)
		return cal
	}

	// Coverage is narrowed to the years the source actually reported.
	lo, hi := 0, 0
	for _, d := range dates {
		if d.Year < fromYear || d.Year > toYear {
			continue
		}
		if lo == 0 || d.Year < lo {
			lo = d.Year
		}
		if d.Year > hi {
			hi = d.Year
		}
	}
	if lo == 0 {
		cal := FallbackCalendar()
		logger.Warn("holiday source returned no holidays; using built-in holiday list with reduced accuracy",
			"source", src.Name(), "from", fromYear, "to", toYear)
		return cal
	}

	cal := NewTradingCalendar(src.Name(), lo, hi, dates, false)
	logger.Info("trading calendar ready", "source", cal.source, "holidays", len(cal.holidays),
		"coverage_from", lo, "coverage_to", hi)
	return cal
}

func (c *TradingCalendar) IsHoliday(d Date) bool {
	_, ok := c.holidays[d]
	return ok
}

// IsTradingDay reports a weekday that is not a holiday.
func (c *TradingCalendar) IsTradingDay(d Date) bool {
	return !d.IsWeekend() && !c.IsHoliday(d)
}

// Covers reports whether d falls in a year the holiday data describes.
// Outside coverage no holidays are known, so only weekends close the market.
func (c *TradingCalendar) Covers(d Date) bool {
	return d.Year >= c.fromYear && d.Year <= c.toYear
}

func (c *TradingCalendar) Coverage() (fromYear, toYear int) { return c.fromYear, c.toYear }

func (c *TradingCalendar) Source() string { return c.source }

// Degraded is true when the built-in fallback list is in use.
func (c *TradingCalendar) Degraded() bool { return c.degraded }

func (c *TradingCalendar) Len() int { return len(c.holidays) }

// Holidays returns the holiday set in ascending order.
func (c *TradingCalendar) Holidays() []Date {
	out := make([]Date, 0, len(c.holidays))
	for d := range c.holidays {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
