package calendar

import (
	"time"

	"github.com/meridian-hcm/meridian/internal/holiday"
)

// ResolvePayDate computes the pay date for a period end: the end date shifted
// by the signed offset, then adjusted to the nearest earlier business day.
// Paying early is operationally safer than paying late, so the adjustment
// never moves forward.
func ResolvePayDate(periodEnd time.Time, offsetDays int, holidays holiday.Set) (time.Time, error) {
	raw := civil(periodEnd).AddDate(0, 0, offsetDays)
	return PreviousBusinessDay(raw, holidays)
}
