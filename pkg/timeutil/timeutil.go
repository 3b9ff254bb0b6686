// Package timeutil provides UTC calendar-day utilities for Stillmind Hub.
// Streaks and reminder windows are defined over UTC calendar days so that
// every client, wherever it runs, agrees on what "today" means.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// FormatDay is the canonical calendar-day format (YYYY-MM-DD).
const FormatDay = "2006-01-02"

// Day formats a time as a UTC calendar day string.
func Day(t time.Time) string {
	return t.UTC().Format(FormatDay)
}

// Today returns the current UTC calendar day string.
func Today() string {
	return Day(time.Now())
}

// DayBefore returns the calendar day string for the day preceding t in UTC.
func DayBefore(t time.Time) string {
	return Day(t.UTC().AddDate(0, 0, -1))
}

// ParseDay parses a YYYY-MM-DD string as midnight UTC.
func ParseDay(value string) (time.Time, error) {
	return time.Parse(FormatDay, value)
}

// SameDay checks if two times fall on the same UTC calendar day.
func SameDay(t1, t2 time.Time) bool {
	u1, u2 := t1.UTC(), t2.UTC()
	return u1.Year() == u2.Year() && u1.YearDay() == u2.YearDay()
}

// StartOfDay returns midnight UTC of the day containing t.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days separating two times.
func DaysBetween(t1, t2 time.Time) int {
	d1 := StartOfDay(t1)
	d2 := StartOfDay(t2)
	days := int(d2.Sub(d1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// ElapsedAtLeast reports whether at least window has passed between then and
// now. The boundary is inclusive: exactly window elapsed counts as passed.
func ElapsedAtLeast(then, now time.Time, window time.Duration) bool {
	return now.Sub(then) >= window
}
