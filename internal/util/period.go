package util

import "time"

// AddServicingPeriod advances a date by one month, clamping the day for
// shorter months (e.g. Jan 31 advances to Feb 28/29).
func AddServicingPeriod(date time.Time) time.Time {
	year := date.Year()
	month := date.Month() + 1
	if month > time.December {
		month = time.January
		year++
	}

	// Last day of target month via day 0 of the month after it
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	day := date.Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TruncateToDate strips the time-of-day component, keeping the date in UTC.
func TruncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameMonth reports whether two dates fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
