// Package timeutil holds the calendar arithmetic shared by slot generation and booking.
// All functions are pure; callers pass instants already placed in the tenant's location.
package timeutil

import (
	"fmt"
	"time"
)

const (
	ClockLayout = "15:04"
	DateLayout  = "2006-01-02"
)

func AddMinutes(t time.Time, m int) time.Time {
	return t.Add(time.Duration(m) * time.Minute)
}

// SameLocalDay reports whether a and b fall on the same calendar day in loc.
func SameLocalDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// SetLocalTime returns hh:mm on the calendar day of date, in date's location.
func SetLocalTime(date time.Time, hh, mm int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, hh, mm, 0, 0, date.Location())
}

// Overlaps reports whether half-open intervals [s1,e1) and [s2,e2) intersect.
// Touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

func FormatClock(t time.Time) string {
	return t.Format(ClockLayout)
}

// ParseClock parses an "HH:MM" label.
func ParseClock(label string) (int, int, error) {
	t, err := time.Parse(ClockLayout, label)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time slot %q: want HH:MM", label)
	}
	return t.Hour(), t.Minute(), nil
}

// ParseDate parses a "YYYY-MM-DD" date as midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	return d, nil
}

// At combines a calendar date and an "HH:MM" label into an instant in loc.
func At(date time.Time, label string, loc *time.Location) (time.Time, error) {
	hh, mm, err := ParseClock(label)
	if err != nil {
		return time.Time{}, err
	}
	if loc != nil {
		y, m, d := date.Date()
		date = time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	return SetLocalTime(date, hh, mm), nil
}
