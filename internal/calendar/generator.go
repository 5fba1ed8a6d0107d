package calendar

import (
	"time"

	"github.com/meridian-hcm/meridian/internal/holiday"
	"github.com/meridian-hcm/meridian/internal/paygroup"
)

// Safety caps for the rolling-window frequencies. Generation past these counts
// means the inputs are inconsistent with the calendar; surfaced as an error
// rather than silently truncated.
const (
	weeklyPeriodCap   = 54
	biweeklyPeriodCap = 28
)

// Generate produces the ordered, contiguous pay periods covering the remainder
// of the input year from the cycle start onward. It is a pure function of its
// inputs: identical requests yield identical sequences.
func Generate(in GenerateInput, bounds OffsetBounds, holidays holiday.Set) ([]GeneratedPeriod, error) {
	if err := in.Validate(bounds); err != nil {
		return nil, err
	}

	var windows []dateWindow
	var err error
	switch in.Frequency {
	case paygroup.FrequencyMonthly:
		windows = monthlyWindows(in.Year, civil(in.CycleStart))
	case paygroup.FrequencySemiMonthly:
		windows = semiMonthlyWindows(in.Year, civil(in.CycleStart))
	case paygroup.FrequencyWeekly:
		windows, err = rollingWindows(in.Year, civil(in.CycleStart), 7, weeklyPeriodCap)
	case paygroup.FrequencyBiweekly:
		windows, err = rollingWindows(in.Year, civil(in.CycleStart), 14, biweeklyPeriodCap)
	}
	if err != nil {
		return nil, err
	}

	periods := make([]GeneratedPeriod, 0, len(windows))
	for i, w := range windows {
		payDate, err := ResolvePayDate(w.end, in.PayDateOffset, holidays)
		if err != nil {
			return nil, err
		}
		p := GeneratedPeriod{
			Number:  in.StartingCycle + i,
			Start:   w.start,
			End:     w.end,
			PayDate: payDate,
		}
		if in.CountMondays {
			p.MondayCount = CountMondays(w.start, w.end)
		}
		periods = append(periods, p)
	}
	return periods, nil
}

type dateWindow struct {
	start time.Time
	end   time.Time
}

// monthlyWindows yields one full calendar month per period, from the month of
// the cycle start through December.
func monthlyWindows(year int, cycleStart time.Time) []dateWindow {
	month := time.January
	if cycleStart.Year() == year {
		month = cycleStart.Month()
	}
	var windows []dateWindow
	for ; month <= time.December; month++ {
		windows = append(windows, dateWindow{
			start: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
			end:   LastDayOfMonth(year, month),
		})
	}
	return windows
}

// semiMonthlyWindows yields two periods per month: day 1-15 and day 16 through
// month end. A cycle start past the 15th skips that month's first half; the
// period already elapsed and fabricating it would collide with history.
func semiMonthlyWindows(year int, cycleStart time.Time) []dateWindow {
	month := time.January
	skipFirstHalf := false
	if cycleStart.Year() == year {
		month = cycleStart.Month()
		skipFirstHalf = cycleStart.Day() > 15
	}
	var windows []dateWindow
	for ; month <= time.December; month++ {
		if !skipFirstHalf {
			windows = append(windows, dateWindow{
				start: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
				end:   time.Date(year, month, 15, 0, 0, 0, 0, time.UTC),
			})
		}
		skipFirstHalf = false
		windows = append(windows, dateWindow{
			start: time.Date(year, month, 16, 0, 0, 0, 0, time.UTC),
			end:   LastDayOfMonth(year, month),
		})
	}
	return windows
}

// rollingWindows yields fixed-length windows advancing by their own length,
// starting at the cycle start. A window belongs to the year when its end falls
// on or before December 31; this keeps mid-December starts that roll into the
// new year inside the current run.
func rollingWindows(year int, cycleStart time.Time, days, limit int) ([]dateWindow, error) {
	endOfYear := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	var windows []dateWindow
	for start := cycleStart; ; start = start.AddDate(0, 0, days) {
		end := start.AddDate(0, 0, days-1)
		if end.After(endOfYear) {
			return windows, nil
		}
		if len(windows) >= limit {
			return nil, ErrPeriodCapExceeded
		}
		windows = append(windows, dateWindow{start: start, end: end})
	}
}
