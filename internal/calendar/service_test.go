package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hcm/meridian/internal/holiday"
	"github.com/meridian-hcm/meridian/internal/paygroup"
	"github.com/meridian-hcm/meridian/internal/shared"
)

// memStore is an in-memory Store keyed by (pay group, year, number).
type memStore struct {
	periods  map[string]PersistedPeriod
	schedule *Schedule
	nextID   int64
	txErr    error
}

func newMemStore() *memStore {
	return &memStore{periods: make(map[string]PersistedPeriod)}
}

func (m *memStore) key(payGroupID int64, year, number int) string {
	return fmt.Sprintf("%d:%s", payGroupID, PeriodKey(year, number))
}

func (m *memStore) seed(payGroupID int64, year int, numbers ...int) {
	for _, n := range numbers {
		m.nextID++
		m.periods[m.key(payGroupID, year, n)] = PersistedPeriod{
			ID:         m.nextID,
			PayGroupID: payGroupID,
			Year:       year,
			Number:     n,
			Start:      time.Date(year, time.Month(n), 1, 0, 0, 0, 0, time.UTC),
			End:        LastDayOfMonth(year, time.Month(n)),
			Status:     PeriodStatusOpen,
		}
	}
}

func (m *memStore) ListPeriods(_ context.Context, payGroupID int64, year int) ([]PersistedPeriod, error) {
	var out []PersistedPeriod
	for _, p := range m.periods {
		if p.PayGroupID == payGroupID && p.Year == year {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memStore) LatestMarkers(ctx context.Context, payGroupID int64, year int) ([]PeriodMarker, error) {
	persisted, _ := m.ListPeriods(ctx, payGroupID, year)
	markers := make([]PeriodMarker, 0, len(persisted))
	for i := len(persisted) - 1; i >= 0; i-- {
		markers = append(markers, PeriodMarker{Number: persisted[i].Number, End: persisted[i].End})
	}
	return markers, nil
}

func (m *memStore) IntersectingPeriods(ctx context.Context, payGroupID int64, year int, numbers []int) ([]PersistedPeriod, error) {
	wanted := make(map[int]struct{}, len(numbers))
	for _, n := range numbers {
		wanted[n] = struct{}{}
	}
	persisted, _ := m.ListPeriods(ctx, payGroupID, year)
	var out []PersistedPeriod
	for _, p := range persisted {
		if _, ok := wanted[p.Number]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	// Mutations land on a copy and are applied on success, mirroring commit
	// and rollback semantics.
	shadow := &memStore{periods: make(map[string]PersistedPeriod, len(m.periods)), schedule: m.schedule, nextID: m.nextID}
	for k, v := range m.periods {
		shadow.periods[k] = v
	}
	if err := fn(ctx, &memTx{store: shadow}); err != nil {
		return err
	}
	m.periods = shadow.periods
	m.schedule = shadow.schedule
	m.nextID = shadow.nextID
	return nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) EnsureSchedule(_ context.Context, pg paygroup.PayGroup) (Schedule, bool, error) {
	if t.store.schedule != nil {
		return *t.store.schedule, false, nil
	}
	t.store.nextID++
	sched := Schedule{
		ID:         t.store.nextID,
		PayGroupID: pg.ID,
		CompanyID:  pg.CompanyID,
		Code:       pg.Code + "-CAL",
		Frequency:  pg.Frequency.NormalizedLabel(),
	}
	t.store.schedule = &sched
	return sched, true, nil
}

func (t *memTx) DeletePeriods(_ context.Context, payGroupID int64, year int, numbers []int) (int64, error) {
	var deleted int64
	for _, n := range numbers {
		k := t.store.key(payGroupID, year, n)
		if _, ok := t.store.periods[k]; ok {
			delete(t.store.periods, k)
			deleted++
		}
	}
	return deleted, nil
}

func (t *memTx) InsertPeriods(_ context.Context, schedule Schedule, year int, periods []GeneratedPeriod) (int, error) {
	for _, p := range periods {
		k := t.store.key(schedule.PayGroupID, year, p.Number)
		if _, ok := t.store.periods[k]; ok {
			return 0, ErrPeriodConflict
		}
		t.store.nextID++
		t.store.periods[k] = PersistedPeriod{
			ID:          t.store.nextID,
			ScheduleID:  schedule.ID,
			PayGroupID:  schedule.PayGroupID,
			Year:        year,
			Number:      p.Number,
			Start:       p.Start,
			End:         p.End,
			PayDate:     p.PayDate,
			MondayCount: p.MondayCount,
			Status:      PeriodStatusOpen,
		}
	}
	return len(periods), nil
}

type memPayGroups struct {
	groups map[int64]paygroup.PayGroup
}

func (m *memPayGroups) Get(_ context.Context, id int64) (paygroup.PayGroup, error) {
	pg, ok := m.groups[id]
	if !ok {
		return paygroup.PayGroup{}, shared.ErrNotFound
	}
	return pg, nil
}

type memHolidays struct {
	set   holiday.Set
	calls int
}

func (m *memHolidays) SetForYears(_ context.Context, _ int64, _, _ int) (holiday.Set, error) {
	m.calls++
	return m.set, nil
}

type memConfirms struct {
	issued  map[string]PendingReplace
	counter int
}

func newMemConfirms() *memConfirms {
	return &memConfirms{issued: make(map[string]PendingReplace)}
}

func (m *memConfirms) Issue(_ context.Context, pending PendingReplace) (string, error) {
	m.counter++
	token := PeriodKey(9000, m.counter)
	m.issued[token] = pending
	return token, nil
}

func (m *memConfirms) Redeem(_ context.Context, token string) (PendingReplace, error) {
	pending, ok := m.issued[token]
	if !ok {
		return PendingReplace{}, ErrConfirmTokenInvalid
	}
	delete(m.issued, token)
	return pending, nil
}

type memAudit struct {
	logs []shared.AuditLog
}

func (m *memAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type memNotifier struct {
	sent []SavedNotification
}

func (m *memNotifier) CalendarSaved(_ context.Context, n SavedNotification) error {
	m.sent = append(m.sent, n)
	return nil
}

type serviceFixture struct {
	svc      *Service
	store    *memStore
	confirms *memConfirms
	audit    *memAudit
	notifier *memNotifier
	holidays *memHolidays
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	store := newMemStore()
	groups := &memPayGroups{groups: map[int64]paygroup.PayGroup{
		1: {ID: 1, CompanyID: 10, Name: "Head Office", Code: "HQ", Frequency: paygroup.FrequencyMonthly},
		2: {ID: 2, CompanyID: 10, Name: "Warehouse", Code: "WH", Frequency: paygroup.FrequencyWeekly, UsesNationalInsurance: true},
	}}
	holidays := &memHolidays{set: holiday.NewSet()}
	confirms := newMemConfirms()
	audit := &memAudit{}
	notifier := &memNotifier{}

	svc := NewService(store, groups, holidays, confirms, audit, slog.New(slog.DiscardHandler))
	svc.WithNotifier(notifier)
	svc.WithNow(func() time.Time { return date(2025, time.June, 1) })
	return &serviceFixture{svc: svc, store: store, confirms: confirms, audit: audit, notifier: notifier, holidays: holidays}
}

func monthlyRequest() GenerateRequest {
	return GenerateRequest{
		PayGroupID:    1,
		Year:          2025,
		StartingCycle: 1,
		CycleStart:    date(2025, time.January, 1),
		PayDateOffset: 0,
	}
}

func TestServicePreview(t *testing.T) {
	f := newServiceFixture(t)

	periods, freq, err := f.svc.Preview(context.Background(), monthlyRequest())
	require.NoError(t, err)
	assert.Equal(t, paygroup.FrequencyMonthly, freq)
	assert.Len(t, periods, 12)
	assert.Zero(t, periods[0].MondayCount, "monthly group does not count Mondays")

	// Preview never writes.
	persisted, err := f.svc.Persisted(context.Background(), 1, 2025)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestServicePreviewCountsMondaysForNIGroups(t *testing.T) {
	f := newServiceFixture(t)

	req := monthlyRequest()
	req.PayGroupID = 2
	req.CycleStart = date(2025, time.January, 6)
	periods, freq, err := f.svc.Preview(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, paygroup.FrequencyWeekly, freq)
	assert.Equal(t, 1, periods[0].MondayCount)
}

func TestServicePreviewUnknownPayGroup(t *testing.T) {
	f := newServiceFixture(t)

	req := monthlyRequest()
	req.PayGroupID = 99
	_, _, err := f.svc.Preview(context.Background(), req)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestServiceSaveFreshYear(t *testing.T) {
	f := newServiceFixture(t)
	ctx := shared.ContextWithActor(context.Background(), 42)

	res, err := f.svc.Save(ctx, SaveRequest{GenerateRequest: monthlyRequest()})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Inserted)
	assert.Zero(t, res.Replaced)
	assert.Empty(t, res.Conflicts)

	persisted, err := f.svc.Persisted(ctx, 1, 2025)
	require.NoError(t, err)
	require.Len(t, persisted, 12)
	assert.Equal(t, 1, persisted[0].Number)
	assert.Equal(t, PeriodStatusOpen, persisted[0].Status)

	// Schedule created once and audited.
	require.NotNil(t, f.store.schedule)
	assert.Equal(t, "HQ-CAL", f.store.schedule.Code)
	require.Len(t, f.audit.logs, 2)
	assert.Equal(t, shared.AuditActionScheduleCreated, f.audit.logs[0].Action)
	assert.Equal(t, shared.AuditActionCalendarSaved, f.audit.logs[1].Action)
	assert.Equal(t, int64(42), f.audit.logs[1].ActorID)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, SavedNotification{PayGroupID: 1, Year: 2025, Inserted: 12, ActorID: 42}, f.notifier.sent[0])
}

func TestServiceSaveConflictWithoutTokenMutatesNothing(t *testing.T) {
	f := newServiceFixture(t)
	f.store.seed(1, 2025, 1, 2, 3)

	res, err := f.svc.Save(context.Background(), SaveRequest{GenerateRequest: monthlyRequest()})
	require.True(t, errors.Is(err, ErrConfirmationRequired))
	assert.Len(t, res.Conflicts, 3)
	assert.NotEmpty(t, res.ConfirmToken)
	assert.Zero(t, res.Inserted)

	// The store is untouched and the token records exactly the collisions.
	persisted, _ := f.svc.Persisted(context.Background(), 1, 2025)
	assert.Len(t, persisted, 3)
	pending := f.confirms.issued[res.ConfirmToken]
	assert.Equal(t, PendingReplace{PayGroupID: 1, Year: 2025, Numbers: []int{1, 2, 3}}, pending)
	assert.Empty(t, f.audit.logs)
	assert.Empty(t, f.notifier.sent)
}

func TestServiceSaveConfirmedReplace(t *testing.T) {
	f := newServiceFixture(t)
	f.store.seed(1, 2025, 1, 2, 3)
	ctx := shared.ContextWithActor(context.Background(), 7)

	res, err := f.svc.Save(ctx, SaveRequest{GenerateRequest: monthlyRequest()})
	require.True(t, errors.Is(err, ErrConfirmationRequired))

	res, err = f.svc.Save(ctx, SaveRequest{GenerateRequest: monthlyRequest(), ConfirmToken: res.ConfirmToken})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Inserted)
	assert.Equal(t, 3, res.Replaced)

	persisted, _ := f.svc.Persisted(ctx, 1, 2025)
	assert.Len(t, persisted, 12)

	// Replace audited under its own action.
	last := f.audit.logs[len(f.audit.logs)-1]
	assert.Equal(t, shared.AuditActionCalendarReplaced, last.Action)
	assert.Equal(t, 3, last.Meta["replaced"])
}

func TestServiceSaveTokenReuseRejected(t *testing.T) {
	f := newServiceFixture(t)
	f.store.seed(1, 2025, 1)
	ctx := context.Background()

	res, err := f.svc.Save(ctx, SaveRequest{GenerateRequest: monthlyRequest()})
	require.True(t, errors.Is(err, ErrConfirmationRequired))
	token := res.ConfirmToken

	_, err = f.svc.Save(ctx, SaveRequest{GenerateRequest: monthlyRequest(), ConfirmToken: token})
	require.NoError(t, err)

	// The stored year now collides in full; the consumed token must not
	// authorise a second replace.
	_, err = f.svc.Save(ctx, SaveRequest{GenerateRequest: monthlyRequest(), ConfirmToken: token})
	assert.True(t, errors.Is(err, ErrConfirmTokenInvalid))
}

func TestServiceSaveTokenForWrongScopeRejected(t *testing.T) {
	f := newServiceFixture(t)
	f.store.seed(1, 2025, 1)

	// Token issued for a different pay group.
	token, err := f.confirms.Issue(context.Background(), PendingReplace{PayGroupID: 2, Year: 2025, Numbers: []int{1}})
	require.NoError(t, err)

	_, err = f.svc.Save(context.Background(), SaveRequest{GenerateRequest: monthlyRequest(), ConfirmToken: token})
	assert.True(t, errors.Is(err, ErrConfirmTokenInvalid))
}

func TestServiceSaveTokenNotCoveringConflictsRejected(t *testing.T) {
	f := newServiceFixture(t)
	f.store.seed(1, 2025, 1, 2)

	// Token authorises fewer periods than now collide.
	token, err := f.confirms.Issue(context.Background(), PendingReplace{PayGroupID: 1, Year: 2025, Numbers: []int{1}})
	require.NoError(t, err)

	_, err = f.svc.Save(context.Background(), SaveRequest{GenerateRequest: monthlyRequest(), ConfirmToken: token})
	assert.True(t, errors.Is(err, ErrConfirmTokenInvalid))
}

func TestServiceSaveNoOverlapKeepsExistingPeriods(t *testing.T) {
	f := newServiceFixture(t)
	f.store.seed(1, 2025, 1, 2, 3)

	req := monthlyRequest()
	req.StartingCycle = 4
	req.CycleStart = date(2025, time.April, 1)

	res, err := f.svc.Save(context.Background(), SaveRequest{GenerateRequest: req})
	require.NoError(t, err)
	assert.Equal(t, 9, res.Inserted)
	assert.Zero(t, res.Replaced)

	persisted, _ := f.svc.Persisted(context.Background(), 1, 2025)
	assert.Len(t, persisted, 12)
}

func TestServiceSaveEmptyGeneration(t *testing.T) {
	f := newServiceFixture(t)

	req := GenerateRequest{
		PayGroupID:    2,
		Year:          2025,
		StartingCycle: 53,
		CycleStart:    date(2025, time.December, 29),
		PayDateOffset: 0,
	}
	_, err := f.svc.Save(context.Background(), SaveRequest{GenerateRequest: req})
	assert.Error(t, err)
}

func TestServiceSaveTxFailureSurfaced(t *testing.T) {
	f := newServiceFixture(t)
	f.store.txErr = errors.New("connection lost")

	_, err := f.svc.Save(context.Background(), SaveRequest{GenerateRequest: monthlyRequest()})
	assert.ErrorContains(t, err, "connection lost")
	assert.Empty(t, f.notifier.sent)
}

func TestServiceNext(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	next, err := f.svc.Next(ctx, 1, 2025)
	require.NoError(t, err)
	assert.Equal(t, Continuation{Year: 2025, Cycle: 1, Start: date(2025, time.January, 1)}, next)

	_, err = f.svc.Save(ctx, SaveRequest{GenerateRequest: monthlyRequest()})
	require.NoError(t, err)

	next, err = f.svc.Next(ctx, 1, 2025)
	require.NoError(t, err)
	assert.Equal(t, Continuation{Year: 2026, Cycle: 1, Start: date(2026, time.January, 1)}, next)
}

func TestServiceOffsetBoundsOverride(t *testing.T) {
	f := newServiceFixture(t)
	f.svc.WithOffsetBounds(OffsetBounds{Min: -5, Max: 5})

	req := monthlyRequest()
	req.PayDateOffset = -10
	_, _, err := f.svc.Preview(context.Background(), req)
	assert.True(t, errors.Is(err, ErrOffsetOutOfRange))

	// Inverted bounds are ignored.
	f.svc.WithOffsetBounds(OffsetBounds{Min: 5, Max: -5})
	req.PayDateOffset = -5
	_, _, err = f.svc.Preview(context.Background(), req)
	assert.NoError(t, err)
}
