package market

import "time"

const (
	fallbackFromYear = 2024
	fallbackToYear   = 2027
)

// NYSE full-day closures, 2024-2027 (observed dates, Good Friday included).
// Extend this table when coverage runs out.
var nyseHolidays = []Date{
	// 2024
	{2024, time.January, 1}, {2024, time.January, 15}, {2024, time.February, 19}, {2024, time.March, 29},
	{2024, time.May, 27}, {2024, time.June, 19}, {2024, time.July, 4}, {2024, time.September, 2},
	{2024, time.November, 28}, {2024, time.December, 25},
	// 2025
	{2025, time.January, 1}, {2025, time.January, 20}, {2025, time.February, 17}, {2025, time.April, 18},
	{2025, time.May, 26}, {2025, time.June, 19}, {2025, time.July, 4}, {2025, time.September, 1},
	{2025, time.November, 27}, {2025, time.December, 25},
	// 2026
	{2026, time.January, 1}, {2026, time.January, 19}, {2026, time.February, 16}, {2026, time.April, 3},
	{2026, time.May, 25}, {2026, time.June, 19}, {2026, time.July, 3}, {2026, time.September, 7},
	{2026, time.November, 26}, {2026, time.December, 25},
	// 2027
	{2027, time.January, 1}, {2027, time.January, 18}, {2027, time.February, 15}, {2027, time.March, 26},
	{2027, time.May, 31}, {2027, time.June, 18}, {2027, time.July, 5}, {2027, time.September, 6},
	{2027, time.November, 25}, {2027, time.December, 24},
}

// FallbackCalendar is the built-in calendar used when no holiday source
// answers. Years outside 2024-2027 have no holidays.
func FallbackCalendar() *TradingCalendar {
	return NewTradingCalendar("builtin", fallbackFromYear, fallbackToYear, nyseHolidays, true)
}

// FallbackHolidays returns a copy of the built-in table.
func FallbackHolidays() []Date {
	return append([]Date(nil), nyseHolidays...)
}
