package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/meridian-hcm/meridian/internal/paygroup"
	"github.com/meridian-hcm/meridian/internal/platform/db"
)

const pgUniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for pay period calendars.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations that must share one transaction so a
// replace can never leave a pay group with neither old nor new periods.
type TxRepository interface {
	EnsureSchedule(ctx context.Context, pg paygroup.PayGroup) (Schedule, bool, error)
	DeletePeriods(ctx context.Context, payGroupID int64, year int, numbers []int) (int64, error)
	InsertPeriods(ctx context.Context, schedule Schedule, year int, periods []GeneratedPeriod) (int, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListPeriods returns the persisted periods for a pay group and year ordered
// by period number.
func (r *Repository) ListPeriods(ctx context.Context, payGroupID int64, year int) ([]PersistedPeriod, error) {
	query := `
		SELECT id, schedule_id, pay_group_id, year, period_number,
		       period_start, period_end, pay_date, monday_count, status
		FROM pay_periods
		WHERE pay_group_id = $1 AND year = $2
		ORDER BY period_number
	`
	rows, err := r.pool.Query(ctx, query, payGroupID, year)
	if err != nil {
		return nil, fmt.Errorf("calendar: list periods: %w", err)
	}
	defer rows.Close()
	return scanPeriods(rows)
}

// LatestMarkers returns (period_number, period_end) pairs for a pay group and
// year, sorted descending by period number for cycle continuation.
func (r *Repository) LatestMarkers(ctx context.Context, payGroupID int64, year int) ([]PeriodMarker, error) {
	query := `
		SELECT period_number, period_end
		FROM pay_periods
		WHERE pay_group_id = $1 AND year = $2
		ORDER BY period_number DESC
	`
	rows, err := r.pool.Query(ctx, query, payGroupID, year)
	if err != nil {
		return nil, fmt.Errorf("calendar: latest markers: %w", err)
	}
	defer rows.Close()

	var markers []PeriodMarker
	for rows.Next() {
		var m PeriodMarker
		if err := rows.Scan(&m.Number, &m.End); err != nil {
			return nil, err
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

// IntersectingPeriods returns stored periods whose numbers collide with the
// candidate set.
func (r *Repository) IntersectingPeriods(ctx context.Context, payGroupID int64, year int, numbers []int) ([]PersistedPeriod, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, schedule_id, pay_group_id, year, period_number,
		       period_start, period_end, pay_date, monday_count, status
		FROM pay_periods
		WHERE pay_group_id = $1 AND year = $2 AND period_number = ANY($3)
		ORDER BY period_number
	`
	rows, err := r.pool.Query(ctx, query, payGroupID, year, numbers)
	if err != nil {
		return nil, fmt.Errorf("calendar: intersecting periods: %w", err)
	}
	defer rows.Close()
	return scanPeriods(rows)
}

// EnsureSchedule upserts the pay period schedule by its natural key so
// concurrent saves for the same pay group can never create a second record.
// The returned flag reports whether the row was created by this call.
func (t *txRepo) EnsureSchedule(ctx context.Context, pg paygroup.PayGroup) (Schedule, bool, error) {
	code, name, label := deriveSchedule(pg)
	query := `
		INSERT INTO pay_period_schedules (pay_group_id, company_id, code, name, frequency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (pay_group_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, pay_group_id, company_id, code, name, frequency, (xmax = 0)
	`
	var s Schedule
	var created bool
	err := t.tx.QueryRow(ctx, query, pg.ID, pg.CompanyID, code, name, label).Scan(
		&s.ID, &s.PayGroupID, &s.CompanyID, &s.Code, &s.Name, &s.Frequency, &created,
	)
	if err != nil {
		return Schedule{}, false, fmt.Errorf("calendar: ensure schedule: %w", err)
	}
	return s, created, nil
}

// DeletePeriods removes the stored periods matching the given numbers.
func (t *txRepo) DeletePeriods(ctx context.Context, payGroupID int64, year int, numbers []int) (int64, error) {
	if len(numbers) == 0 {
		return 0, nil
	}
	tag, err := t.tx.Exec(ctx, `
		DELETE FROM pay_periods
		WHERE pay_group_id = $1 AND year = $2 AND period_number = ANY($3)
	`, payGroupID, year, numbers)
	if err != nil {
		return 0, fmt.Errorf("calendar: delete periods: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertPeriods stores the generated batch with status open.
func (t *txRepo) InsertPeriods(ctx context.Context, schedule Schedule, year int, periods []GeneratedPeriod) (int, error) {
	query := `
		INSERT INTO pay_periods (schedule_id, pay_group_id, year, period_number, period_key,
		                         period_start, period_end, pay_date, monday_count, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`
	inserted := 0
	for _, p := range periods {
		_, err := t.tx.Exec(ctx, query,
			schedule.ID, schedule.PayGroupID, year, p.Number, PeriodKey(year, p.Number),
			p.Start, p.End, p.PayDate, p.MondayCount, string(PeriodStatusOpen),
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return inserted, fmt.Errorf("%w: %s", ErrPeriodConflict, PeriodKey(year, p.Number))
			}
			return inserted, fmt.Errorf("calendar: insert period %s: %w", PeriodKey(year, p.Number), err)
		}
		inserted++
	}
	return inserted, nil
}

// deriveSchedule builds the schedule code, display name, and normalized
// frequency label from the pay group.
func deriveSchedule(pg paygroup.PayGroup) (code, name, label string) {
	label = pg.Frequency.NormalizedLabel()
	code = strings.ToUpper(pg.Code) + "-CAL"
	titled := cases.Title(language.English).String(strings.ReplaceAll(label, "_", " "))
	name = strings.TrimSpace(pg.Name + " " + titled + " Schedule")
	return code, name, label
}

func scanPeriods(rows pgx.Rows) ([]PersistedPeriod, error) {
	var periods []PersistedPeriod
	for rows.Next() {
		var p PersistedPeriod
		var status string
		var start, end, payDate time.Time
		if err := rows.Scan(&p.ID, &p.ScheduleID, &p.PayGroupID, &p.Year, &p.Number,
			&start, &end, &payDate, &p.MondayCount, &status); err != nil {
			return nil, err
		}
		p.Start, p.End, p.PayDate = civil(start), civil(end), civil(payDate)
		p.Status = PeriodStatus(status)
		periods = append(periods, p)
	}
	return periods, rows.Err()
}
