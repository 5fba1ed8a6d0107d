package calendar

import (
	"time"

	"github.com/meridian-hcm/meridian/internal/holiday"
)

// businessDaySearchCap bounds the backwards walk in PreviousBusinessDay. A full
// leap year of consecutive non-working days means the holiday data is broken.
const businessDaySearchCap = 366

// civil truncates a timestamp to a UTC calendar date.
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LastDayOfMonth returns the final calendar day of the given month.
func LastDayOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// CountMondays counts the Mondays within the inclusive date range.
func CountMondays(start, end time.Time) int {
	start, end = civil(start), civil(end)
	if end.Before(start) {
		return 0
	}
	// Jump to the first Monday at or after start, then stride by week.
	offset := (int(time.Monday) - int(start.Weekday()) + 7) % 7
	first := start.AddDate(0, 0, offset)
	if first.After(end) {
		return 0
	}
	return int(end.Sub(first).Hours()/(24*7)) + 1
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsBusinessDay reports whether the date is a working day: not a weekend and
// not a member of the holiday set.
func IsBusinessDay(t time.Time, holidays holiday.Set) bool {
	return !IsWeekend(t) && !holidays.Contains(t)
}

// PreviousBusinessDay walks backwards from the given date, inclusive, until it
// finds a business day. Payroll policy only ever moves a pay date earlier.
func PreviousBusinessDay(t time.Time, holidays holiday.Set) (time.Time, error) {
	day := civil(t)
	for i := 0; i < businessDaySearchCap; i++ {
		if IsBusinessDay(day, holidays) {
			return day, nil
		}
		day = day.AddDate(0, 0, -1)
	}
	return time.Time{}, ErrBusinessDaySearchExhausted
}
