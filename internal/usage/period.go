package usage

import "time"

// StartOfDay returns midnight of the day containing t, in t's location.
// Quota windows are calendar days, not rolling 24-hour windows, so a user
// who exhausts the limit at 23:59 is unblocked a minute later.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// NextMidnight returns the first instant of the day after t.
func NextMidnight(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// MonthPeriod returns the first instants of the month containing t and of
// the following month. Rollup rows are keyed on the former; the half-open
// interval [start, end) covers the whole month.
func MonthPeriod(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 1, 0)
	return start, end
}
