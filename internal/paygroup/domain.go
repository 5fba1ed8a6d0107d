package paygroup

import (
	"errors"
	"fmt"
)

// Frequency enumerates supported pay cycles.
type Frequency string

const (
	FrequencyMonthly     Frequency = "monthly"
	FrequencySemiMonthly Frequency = "semimonthly"
	FrequencyBiweekly    Frequency = "biweekly"
	FrequencyWeekly      Frequency = "weekly"
)

// ErrUnknownFrequency indicates an unsupported pay frequency value.
var ErrUnknownFrequency = errors.New("paygroup: unknown pay frequency")

// ParseFrequency validates a raw frequency string.
func ParseFrequency(raw string) (Frequency, error) {
	switch Frequency(raw) {
	case FrequencyMonthly, FrequencySemiMonthly, FrequencyBiweekly, FrequencyWeekly:
		return Frequency(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, raw)
	}
}

// MaxCycles returns the highest cycle number a year can hold for the frequency.
func (f Frequency) MaxCycles() int {
	switch f {
	case FrequencyMonthly:
		return 12
	case FrequencySemiMonthly:
		return 24
	case FrequencyBiweekly:
		return 27
	case FrequencyWeekly:
		return 53
	default:
		return 0
	}
}

// NormalizedLabel returns the storage label used on pay period schedules.
func (f Frequency) NormalizedLabel() string {
	switch f {
	case FrequencySemiMonthly:
		return "semi_monthly"
	case FrequencyBiweekly:
		return "bi_weekly"
	default:
		return string(f)
	}
}

// PayGroup identifies a population of employees sharing a pay frequency.
type PayGroup struct {
	ID                    int64
	CompanyID             int64
	Name                  string
	Code                  string
	Frequency             Frequency
	UsesNationalInsurance bool
}
