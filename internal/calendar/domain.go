package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/meridian-hcm/meridian/internal/paygroup"
)

// PeriodStatus is the lifecycle state of a persisted pay period.
type PeriodStatus string

// PeriodStatusOpen marks a period that has not been processed yet.
const PeriodStatusOpen PeriodStatus = "open"

// GeneratedPeriod is one pay cycle's date range produced for a preview.
// Instances are never mutated after generation.
type GeneratedPeriod struct {
	Number      int
	Start       time.Time
	End         time.Time
	PayDate     time.Time
	MondayCount int
}

// Key returns the storage-level uniqueness key for the period within a year.
func (p GeneratedPeriod) Key(year int) string {
	return PeriodKey(year, p.Number)
}

// PeriodKey formats the zero-padded "{year}-{NN}" uniqueness key.
func PeriodKey(year, number int) string {
	return fmt.Sprintf("%d-%02d", year, number)
}

// PersistedPeriod is the durable form of a generated period.
type PersistedPeriod struct {
	ID          int64
	ScheduleID  int64
	PayGroupID  int64
	Year        int
	Number      int
	Start       time.Time
	End         time.Time
	PayDate     time.Time
	MondayCount int
	Status      PeriodStatus
}

// PeriodMarker is the slim projection used by cycle continuation.
type PeriodMarker struct {
	Number int
	End    time.Time
}

// Schedule is the per-pay-group calendar record, created lazily on first save.
type Schedule struct {
	ID         int64
	PayGroupID int64
	CompanyID  int64
	Code       string
	Name       string
	Frequency  string
}

// OffsetBounds constrains the pay-date offset accepted from callers.
type OffsetBounds struct {
	Min int
	Max int
}

// DefaultOffsetBounds matches the configured operational range.
var DefaultOffsetBounds = OffsetBounds{Min: -30, Max: 30}

// GenerateInput describes one calendar generation request.
type GenerateInput struct {
	PayGroupID    int64
	Frequency     paygroup.Frequency
	Year          int
	StartingCycle int
	CycleStart    time.Time
	PayDateOffset int
	CountMondays  bool
}

// Validation errors reported before any computation.
var (
	ErrInvalidCycleNumber = errors.New("calendar: starting cycle number out of range")
	ErrMissingStartDate   = errors.New("calendar: cycle start date required")
	ErrInvalidYear        = errors.New("calendar: year out of range")
	ErrOffsetOutOfRange   = errors.New("calendar: pay date offset out of range")
)

// Generation and persistence errors.
var (
	// ErrBusinessDaySearchExhausted signals holiday data marking out an entire
	// year; treated as a configuration error.
	ErrBusinessDaySearchExhausted = errors.New("calendar: no business day found within search window")
	// ErrPeriodCapExceeded guards the weekly/biweekly loops against runaway
	// generation from inconsistent inputs.
	ErrPeriodCapExceeded = errors.New("calendar: generated period count exceeded safety cap")
	// ErrConfirmationRequired is returned when a save collides with stored
	// periods and no confirmation token accompanied the request.
	ErrConfirmationRequired = errors.New("calendar: replace requires confirmation")
	// ErrConfirmTokenInvalid is returned for unknown, expired, or mismatched
	// confirmation tokens. Tokens are single use.
	ErrConfirmTokenInvalid = errors.New("calendar: confirmation token invalid or expired")
	// ErrPeriodConflict surfaces a store-level uniqueness violation, typically
	// from a concurrent save against the same pay group and year.
	ErrPeriodConflict = errors.New("calendar: period number already stored")
)

// Validate checks the generation request against the supplied offset bounds.
func (in GenerateInput) Validate(bounds OffsetBounds) error {
	if in.PayGroupID <= 0 {
		return errors.New("calendar: pay group id required")
	}
	if _, err := paygroup.ParseFrequency(string(in.Frequency)); err != nil {
		return err
	}
	if in.Year < 1900 || in.Year > 9999 {
		return ErrInvalidYear
	}
	if in.CycleStart.IsZero() {
		return ErrMissingStartDate
	}
	if max := in.Frequency.MaxCycles(); in.StartingCycle < 1 || in.StartingCycle > max {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidCycleNumber, in.StartingCycle, max)
	}
	if in.PayDateOffset < bounds.Min || in.PayDateOffset > bounds.Max {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrOffsetOutOfRange, in.PayDateOffset, bounds.Min, bounds.Max)
	}
	return nil
}

// Continuation is the next generation slot for a pay group.
type Continuation struct {
	Year  int
	Cycle int
	Start time.Time
}
