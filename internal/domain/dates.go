package domain

import "time"

// DateLayout is the calendar date format used on the wire and in storage keys.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date, expressed at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the calendar date n days after t.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}
