// Package datex provides helpers for working with calendar days encoded as
// ISO "YYYY-MM-DD" strings, the unit of completion tracking throughout the
// tracker. All arithmetic is done in UTC on whole days so DST shifts cannot
// split or merge a day.
package datex

import (
	"fmt"
	"time"
)

// Layout is the wire/storage format for a calendar day.
const Layout = "2006-01-02"

// Format renders t as a calendar day in t's location.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse parses a "YYYY-MM-DD" string into a UTC midnight time.
func Parse(day string) (time.Time, error) {
	t, err := time.Parse(Layout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", day, err)
	}
	return t, nil
}

// Valid reports whether day is a well-formed "YYYY-MM-DD" string.
func Valid(day string) bool {
	_, err := time.Parse(Layout, day)
	return err == nil
}

// AddDays returns the day n days after (or before, for negative n) the
// given day. The input must be valid.
func AddDays(day string, n int) (string, error) {
	t, err := Parse(day)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

// DaysBetween returns the signed number of whole days from a to b.
func DaysBetween(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// WeekStart returns the Monday of the ISO week containing day.
func WeekStart(day string) (string, error) {
	t, err := Parse(day)
	if err != nil {
		return "", err
	}
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return Format(t.AddDate(0, 0, -offset)), nil
}
