package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-hcm/meridian/internal/holiday"
	"github.com/meridian-hcm/meridian/internal/paygroup"
	"github.com/meridian-hcm/meridian/internal/shared"
)

// Store abstracts calendar persistence for the service.
type Store interface {
	ListPeriods(ctx context.Context, payGroupID int64, year int) ([]PersistedPeriod, error)
	LatestMarkers(ctx context.Context, payGroupID int64, year int) ([]PeriodMarker, error)
	IntersectingPeriods(ctx context.Context, payGroupID int64, year int, numbers []int) ([]PersistedPeriod, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// PayGroups resolves pay group configuration.
type PayGroups interface {
	Get(ctx context.Context, id int64) (paygroup.PayGroup, error)
}

// Holidays supplies the effective holiday set for a company across years.
type Holidays interface {
	SetForYears(ctx context.Context, companyID int64, fromYear, toYear int) (holiday.Set, error)
}

// Confirmations manages pending replace confirmations.
type Confirmations interface {
	Issue(ctx context.Context, pending PendingReplace) (string, error)
	Redeem(ctx context.Context, token string) (PendingReplace, error)
}

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// SavedNotification describes a completed save for downstream fan-out.
type SavedNotification struct {
	PayGroupID int64
	Year       int
	Inserted   int
	Replaced   int
	ActorID    int64
}

// Notifier enqueues post-save notifications. Failures are logged, not fatal.
type Notifier interface {
	CalendarSaved(ctx context.Context, n SavedNotification) error
}

// Service orchestrates payroll calendar generation and persistence.
type Service struct {
	store     Store
	payGroups PayGroups
	holidays  Holidays
	confirms  Confirmations
	audit     AuditRecorder
	notifier  Notifier
	logger    *slog.Logger
	bounds    OffsetBounds
	now       func() time.Time
}

// NewService constructs a Service instance.
func NewService(store Store, payGroups PayGroups, holidays Holidays, confirms Confirmations, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		payGroups: payGroups,
		holidays:  holidays,
		confirms:  confirms,
		audit:     audit,
		logger:    logger,
		bounds:    DefaultOffsetBounds,
		now:       time.Now,
	}
}

// WithOffsetBounds overrides the accepted pay-date offset range.
func (s *Service) WithOffsetBounds(bounds OffsetBounds) {
	if bounds.Min <= bounds.Max {
		s.bounds = bounds
	}
}

// WithNotifier attaches the post-save notifier.
func (s *Service) WithNotifier(n Notifier) {
	s.notifier = n
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GenerateRequest describes a preview or save invocation.
type GenerateRequest struct {
	PayGroupID    int64
	Year          int
	StartingCycle int
	CycleStart    time.Time
	PayDateOffset int
}

// Preview generates the period sequence without touching the store. Identical
// requests yield identical sequences.
func (s *Service) Preview(ctx context.Context, req GenerateRequest) ([]GeneratedPeriod, paygroup.Frequency, error) {
	pg, in, err := s.buildInput(ctx, req)
	if err != nil {
		return nil, "", err
	}
	holidaySet, err := s.holidaySpan(ctx, pg.CompanyID, req.Year)
	if err != nil {
		return nil, "", err
	}
	periods, err := Generate(in, s.bounds, holidaySet)
	if err != nil {
		return nil, "", err
	}
	return periods, pg.Frequency, nil
}

// Next resolves where generation should resume for the pay group and year.
func (s *Service) Next(ctx context.Context, payGroupID int64, year int) (Continuation, error) {
	pg, err := s.payGroups.Get(ctx, payGroupID)
	if err != nil {
		return Continuation{}, err
	}
	markers, err := s.store.LatestMarkers(ctx, payGroupID, year)
	if err != nil {
		return Continuation{}, err
	}
	return NextCycle(pg.Frequency, year, markers), nil
}

// Persisted returns the stored calendar for a pay group and year.
func (s *Service) Persisted(ctx context.Context, payGroupID int64, year int) ([]PersistedPeriod, error) {
	return s.store.ListPeriods(ctx, payGroupID, year)
}

// SaveRequest carries a generation request plus an optional confirmation token
// authorising the replacement of colliding stored periods.
type SaveRequest struct {
	GenerateRequest
	ConfirmToken string
}

// SaveResult reports the outcome of a save.
type SaveResult struct {
	Inserted     int
	Replaced     int
	Conflicts    []PersistedPeriod
	ConfirmToken string
}

// Save reconciles a generated batch against stored periods and persists it.
//
// A collision with stored period numbers is not an error condition in itself:
// without a confirmation token the save stops, the colliding periods are
// returned alongside a token, and ErrConfirmationRequired tells the caller an
// explicit choice is needed. With a valid token the old rows are deleted and
// the new batch inserted inside one transaction.
func (s *Service) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	pg, in, err := s.buildInput(ctx, req.GenerateRequest)
	if err != nil {
		return SaveResult{}, err
	}
	holidaySet, err := s.holidaySpan(ctx, pg.CompanyID, req.Year)
	if err != nil {
		return SaveResult{}, err
	}
	periods, err := Generate(in, s.bounds, holidaySet)
	if err != nil {
		return SaveResult{}, err
	}
	if len(periods) == 0 {
		return SaveResult{}, fmt.Errorf("%w: no periods generated for remainder of %d", ErrMissingStartDate, req.Year)
	}

	numbers := make([]int, len(periods))
	for i, p := range periods {
		numbers[i] = p.Number
	}

	conflicts, err := s.store.IntersectingPeriods(ctx, req.PayGroupID, req.Year, numbers)
	if err != nil {
		return SaveResult{}, err
	}

	if len(conflicts) > 0 {
		if req.ConfirmToken == "" {
			token, err := s.confirms.Issue(ctx, PendingReplace{
				PayGroupID: req.PayGroupID,
				Year:       req.Year,
				Numbers:    conflictNumbers(conflicts),
			})
			if err != nil {
				return SaveResult{}, err
			}
			return SaveResult{Conflicts: conflicts, ConfirmToken: token}, ErrConfirmationRequired
		}
		pending, err := s.confirms.Redeem(ctx, req.ConfirmToken)
		if err != nil {
			return SaveResult{}, err
		}
		if pending.PayGroupID != req.PayGroupID || pending.Year != req.Year || !coversNumbers(pending.Numbers, conflicts) {
			return SaveResult{}, ErrConfirmTokenInvalid
		}
	}

	var inserted int
	var scheduleCreated bool
	var schedule Schedule
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var e error
		schedule, scheduleCreated, e = tx.EnsureSchedule(ctx, pg)
		if e != nil {
			return e
		}
		if len(conflicts) > 0 {
			if _, e := tx.DeletePeriods(ctx, req.PayGroupID, req.Year, conflictNumbers(conflicts)); e != nil {
				return e
			}
		}
		inserted, e = tx.InsertPeriods(ctx, schedule, req.Year, periods)
		return e
	})
	if err != nil {
		return SaveResult{}, err
	}

	s.recordSave(ctx, pg, schedule, scheduleCreated, req, inserted, len(conflicts))

	return SaveResult{Inserted: inserted, Replaced: len(conflicts)}, nil
}

func (s *Service) recordSave(ctx context.Context, pg paygroup.PayGroup, schedule Schedule, scheduleCreated bool, req SaveRequest, inserted, replaced int) {
	actorID := shared.ActorFromContext(ctx)

	action := shared.AuditActionCalendarSaved
	if replaced > 0 {
		action = shared.AuditActionCalendarReplaced
	}
	if s.audit != nil {
		if scheduleCreated {
			if err := s.audit.Record(ctx, shared.AuditLog{
				ActorID:  actorID,
				Action:   shared.AuditActionScheduleCreated,
				Entity:   "pay_period_schedule",
				EntityID: schedule.Code,
				At:       s.now(),
			}); err != nil {
				s.logger.Warn("audit schedule created", slog.Any("error", err))
			}
		}
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "pay_period_calendar",
			EntityID: fmt.Sprintf("%d/%d", req.PayGroupID, req.Year),
			Meta: map[string]any{
				"inserted": inserted,
				"replaced": replaced,
				"cycle":    req.StartingCycle,
			},
			At: s.now(),
		}); err != nil {
			s.logger.Warn("audit calendar save", slog.Any("error", err))
		}
	}

	if s.notifier != nil {
		if err := s.notifier.CalendarSaved(ctx, SavedNotification{
			PayGroupID: req.PayGroupID,
			Year:       req.Year,
			Inserted:   inserted,
			Replaced:   replaced,
			ActorID:    actorID,
		}); err != nil {
			s.logger.Warn("enqueue calendar saved", slog.Any("error", err))
		}
	}

	s.logger.Info("calendar saved",
		slog.Int64("pay_group", pg.ID),
		slog.Int("year", req.Year),
		slog.Int("inserted", inserted),
		slog.Int("replaced", replaced),
	)
}

// buildInput resolves the pay group and assembles the generator input.
func (s *Service) buildInput(ctx context.Context, req GenerateRequest) (paygroup.PayGroup, GenerateInput, error) {
	pg, err := s.payGroups.Get(ctx, req.PayGroupID)
	if err != nil {
		return paygroup.PayGroup{}, GenerateInput{}, err
	}
	in := GenerateInput{
		PayGroupID:    req.PayGroupID,
		Frequency:     pg.Frequency,
		Year:          req.Year,
		StartingCycle: req.StartingCycle,
		CycleStart:    req.CycleStart,
		PayDateOffset: req.PayDateOffset,
		CountMondays:  pg.UsesNationalInsurance,
	}
	return pg, in, nil
}

// holidaySpan loads holidays for the year plus one on each side; shifted pay
// dates can land just outside the generation year.
func (s *Service) holidaySpan(ctx context.Context, companyID int64, year int) (holiday.Set, error) {
	return s.holidays.SetForYears(ctx, companyID, year-1, year+1)
}

func conflictNumbers(conflicts []PersistedPeriod) []int {
	numbers := make([]int, len(conflicts))
	for i, c := range conflicts {
		numbers[i] = c.Number
	}
	return numbers
}

// coversNumbers reports whether every conflict number appears in the
// authorised set.
func coversNumbers(authorised []int, conflicts []PersistedPeriod) bool {
	allowed := make(map[int]struct{}, len(authorised))
	for _, n := range authorised {
		allowed[n] = struct{}{}
	}
	for _, c := range conflicts {
		if _, ok := allowed[c.Number]; !ok {
			return false
		}
	}
	return true
}
