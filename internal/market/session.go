package market

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time in the market's zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	v, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (want HH:MM)", s)
	}
	return TimeOfDay{Hour: v.Hour(), Minute: v.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) seconds() int {
	return t.Hour*3600 + t.Minute*60
}

// On returns the instant of t on day d in loc. Building it from wall-clock
// fields keeps DST transition days correct.
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}

// Session is the daily trading window [Open, Close).
type Session struct {
	Open  TimeOfDay
	Close TimeOfDay
}

// DefaultSession is 08:30-15:00, regular US hours expressed in Central Time.
var DefaultSession = Session{
	Open:  TimeOfDay{Hour: 8, Minute: 30},
	Close: TimeOfDay{Hour: 15, Minute: 0},
}

// ParseSession parses open/close "HH:MM" strings; open must be before close.
func ParseSession(open, close string) (Session, error) {
	o, err := ParseTimeOfDay(open)
	if err != nil {
		return Session{}, fmt.Errorf("session open: %w", err)
	}
	c, err := ParseTimeOfDay(close)
	if err != nil {
		return Session{}, fmt.Errorf("session close: %w", err)
	}
	if o.seconds() >= c.seconds() {
		return Session{}, fmt.Errorf("session open %s must be before close %s", o, c)
	}
	return Session{Open: o, Close: c}, nil
}

// Contains reports whether the wall-clock time of local falls in [Open, Close).
// local must already be in the market zone.
func (s Session) Contains(local time.Time) bool {
	sec := local.Hour()*3600 + local.Minute()*60 + local.Second()
	return sec >= s.Open.seconds() && sec < s.Close.seconds()
}

func (s Session) String() string {
	return s.Open.String() + "-" + s.Close.String()
}
