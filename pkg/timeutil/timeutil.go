// Package timeutil provides civil-date helpers.
// Internship open and close dates are calendar dates, not instants: a
// posting that closes on 2024-06-30 is open for the whole of that day in the
// campus timezone. Dates are normalised to midnight UTC of their calendar day
// so they compare and store without timezone drift.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used for parsing and display.
const DateLayout = "2006-01-02"

// Clock returns the current instant. Handlers take a Clock so tests can pin "today".
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// Date creates a civil date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the calendar day of t as observed in t's own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in loc. A nil loc means UTC.
func Today(clock Clock, loc *time.Location) time.Time {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(clock().In(loc))
}

// IsBefore reports whether day a is strictly before day b.
func IsBefore(a, b time.Time) bool {
	return DateOf(a).Before(DateOf(b))
}

// IsAfter reports whether day a is strictly after day b.
func IsAfter(a, b time.Time) bool {
	return DateOf(a).After(DateOf(b))
}

// Within reports whether day d lies in [start, end], bounds inclusive.
func Within(d, start, end time.Time) bool {
	return !IsBefore(d, start) && !IsAfter(d, end)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid date %q: %w", value, err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return DateOf(t).Format(DateLayout)
}

// LoadLocation resolves an IANA zone name, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
