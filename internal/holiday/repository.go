package holiday

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads holiday configuration from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadYear returns the union of active company and national holidays for a single year.
func (r *Repository) LoadYear(ctx context.Context, companyID int64, year int) (Set, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	query := `
		SELECT holiday_date FROM company_holidays
		WHERE company_id = $1 AND active AND holiday_date BETWEEN $2 AND $3
		UNION
		SELECT holiday_date FROM national_holidays
		WHERE active AND holiday_date BETWEEN $2 AND $3
	`
	rows, err := r.pool.Query(ctx, query, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("holiday: load year %d company %d: %w", year, companyID, err)
	}
	defer rows.Close()

	set := make(Set)
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		set.Add(date)
	}
	return set, rows.Err()
}
