package rules

import "time"

// StartOfDay truncates t to local midnight. HabitLog rows and the reset
// marker key off this value.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsYesterday reports whether t falls on the calendar day before now.
func IsYesterday(t, now time.Time) bool {
	return SameDay(t, now.AddDate(0, 0, -1))
}

// DayKey formats a day for the reset marker table.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
