package calendar

import (
	"time"

	"github.com/meridian-hcm/meridian/internal/paygroup"
)

// NextCycle determines where generation should resume for a pay group and
// year, given its persisted periods sorted descending by period number.
//
// With no history the year starts fresh. When the year's cycles are exhausted
// the continuation rolls into January 1 of the following year; callers must
// apply the returned year to subsequent generation. Otherwise generation
// resumes one day after the latest period end, so repeated generate-persist
// rounds stay gap-free and never reuse a period number.
func NextCycle(frequency paygroup.Frequency, year int, existing []PeriodMarker) Continuation {
	if len(existing) == 0 {
		return Continuation{
			Year:  year,
			Cycle: 1,
			Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	latest := existing[0]
	if latest.Number >= frequency.MaxCycles() {
		return Continuation{
			Year:  year + 1,
			Cycle: 1,
			Start: time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	return Continuation{
		Year:  year,
		Cycle: latest.Number + 1,
		Start: civil(latest.End).AddDate(0, 0, 1),
	}
}
