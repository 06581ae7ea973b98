package service

import "time"

// Calendar defines the clinic's business day. "Today", per-day sequences,
// queue numbers and reconciliation dates are all computed in its location.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar creates a calendar for loc using the wall clock
func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{loc: loc, now: time.Now}
}

// SetClock replaces the time source
func (c *Calendar) SetClock(now func() time.Time) {
	c.now = now
}

// Now returns the current instant in the clinic's location
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns midnight of the current business day
func (c *Calendar) Today() time.Time {
	return c.DayOf(c.now())
}

// DayOf returns midnight of the business day t falls on
func (c *Calendar) DayOf(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// ParseDay parses a YYYY-MM-DD date in the clinic's location
func (c *Calendar) ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, c.loc)
}

// Location returns the calendar's time zone
func (c *Calendar) Location() *time.Location {
	return c.loc
}
