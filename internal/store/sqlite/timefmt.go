package sqlite

import "time"

const fixedLayout = "2006-01-02T15:04:05.000000000Z07:00"

// fixedRFC3339Nano is a fixed-width RFC3339 with 9-digit nanoseconds.
// This makes TEXT ordering match time ordering.
func fixedRFC3339Nano(t time.Time) string {
	return t.UTC().Format(fixedLayout)
}

func parseFixed(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
