package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeZoneUnavailable means the configured zone could not be resolved.
var ErrTimeZoneUnavailable = errors.New("time zone unavailable")

// maxScanDays bounds the search for the next trading day.
const maxScanDays = 3660

// LoadLocation resolves an IANA zone name.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty zone name", ErrTimeZoneUnavailable)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v (install tzdata)", ErrTimeZoneUnavailable, name, err)
	}
	return loc, nil
}

// Status says why the market is open or closed at an instant.
type Status int

const (
	StatusOpen Status = iota
	// StatusClosedDay: weekend or holiday.
	StatusClosedDay
	// StatusClosedHours: trading day, outside the session window.
	StatusClosedHours
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosedDay:
		return "closed_day"
	case StatusClosedHours:
		return "closed_hours"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Clock answers market-hours questions for one zone, session and calendar.
type Clock struct {
	loc     *time.Location
	session Session
	cal     *TradingCalendar
}

func NewClock(loc *time.Location, session Session, cal *TradingCalendar) *Clock {
	if cal == nil {
		cal = FallbackCalendar()
	}
	return &Clock{loc: loc, session: session, cal: cal}
}

func (c *Clock) Location() *time.Location   { return c.loc }
func (c *Clock) Session() Session           { return c.session }
func (c *Clock) Calendar() *TradingCalendar { return c.cal }

// Local converts t to the market zone.
func (c *Clock) Local(t time.Time) time.Time { return t.In(c.loc) }

// Today is the market-zone calendar day of t.
func (c *Clock) Today(t time.Time) Date { return DateOf(t.In(c.loc)) }

// IsOpen reports whether the market is open at t. The open boundary is
// inside the session, the close boundary is not.
func (c *Clock) IsOpen(t time.Time) bool {
	return c.Status(t) == StatusOpen
}

func (c *Clock) Status(t time.Time) Status {
	local := t.In(c.loc)
	d := DateOf(local)
	if d.IsWeekend() || c.cal.IsHoliday(d) {
		return StatusClosedDay
	}
	if !c.session.Contains(local) {
		return StatusClosedHours
	}
	return StatusOpen
}

// Window returns the session open and close for t's market-zone day,
// regardless of whether that day trades.
func (c *Clock) Window(t time.Time) (open, close time.Time) {
	d := c.Today(t)
	return c.session.Open.On(d, c.loc), c.session.Close.On(d, c.loc)
}

// NextOpen returns the first session open strictly after t.
func (c *Clock) NextOpen(t time.Time) time.Time {
	d := c.Today(t)
	for i := 0; i < maxScanDays; i++ {
		if c.cal.IsTradingDay(d) {
			open := c.session.Open.On(d, c.loc)
			if open.After(t) {
				return open
			}
		}
		d = d.AddDays(1)
	}
	return time.Time{}
}

// NextClose returns the close of the session in progress at t, or of the
// next session when the market is closed.
func (c *Clock) NextClose(t time.Time) time.Time {
	d := c.Today(t)
	for i := 0; i < maxScanDays; i++ {
		if c.cal.IsTradingDay(d) {
			cl := c.session.Close.On(d, c.loc)
			if cl.After(t) {
				return cl
			}
		}
		d = d.AddDays(1)
	}
	return time.Time{}
}

// NextBoundary returns the next open/close instant after t and whether it
// is an open.
func (c *Clock) NextBoundary(t time.Time) (at time.Time, opening bool) {
	if c.IsOpen(t) {
		return c.NextClose(t), false
	}
	return c.NextOpen(t), true
}
