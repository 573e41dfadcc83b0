// Package calendar answers "what day is it" for date-only comparisons
// against event dates.
package calendar

import "time"

// Calendar resolves the current calendar date in a fixed timezone. Dates
// are represented as midnight UTC, matching how PostgreSQL DATE values scan.
type Calendar struct {
	now func() time.Time
	loc *time.Location
}

func New(loc *time.Location, now func() time.Time) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Calendar{now: now, loc: loc}
}

// Now returns the current instant.
func (c Calendar) Now() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// Today is the current local calendar date.
func (c Calendar) Today() time.Time {
	loc := c.loc
	if loc == nil {
		loc = time.UTC
	}
	return DateOnly(c.Now().In(loc))
}

// IsPast reports whether date falls strictly before today. Time of day is ignored.
func (c Calendar) IsPast(date time.Time) bool {
	return DateOnly(date).Before(c.Today())
}

// DateOnly keeps the calendar date of t and drops the time and zone.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
