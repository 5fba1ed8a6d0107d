package paygroup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hcm/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence for pay groups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get retrieves a pay group by ID.
func (r *Repository) Get(ctx context.Context, id int64) (PayGroup, error) {
	query := `
		SELECT id, company_id, name, code, pay_frequency, uses_national_insurance
		FROM pay_groups
		WHERE id = $1
	`
	var pg PayGroup
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&pg.ID, &pg.CompanyID, &pg.Name, &pg.Code, &pg.Frequency, &pg.UsesNationalInsurance,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PayGroup{}, shared.ErrNotFound
		}
		return PayGroup{}, fmt.Errorf("paygroup: get %d: %w", id, err)
	}
	return pg, nil
}

// List returns pay groups for a company ordered by code.
func (r *Repository) List(ctx context.Context, companyID int64, limit, offset int) ([]PayGroup, error) {
	query := `
		SELECT id, company_id, name, code, pay_frequency, uses_national_insurance
		FROM pay_groups
		WHERE company_id = $1
		ORDER BY code
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("paygroup: list company %d: %w", companyID, err)
	}
	defer rows.Close()

	var groups []PayGroup
	for rows.Next() {
		var pg PayGroup
		if err := rows.Scan(&pg.ID, &pg.CompanyID, &pg.Name, &pg.Code, &pg.Frequency, &pg.UsesNationalInsurance); err != nil {
			return nil, err
		}
		groups = append(groups, pg)
	}
	return groups, rows.Err()
}

// Count returns the number of pay groups for a company.
func (r *Repository) Count(ctx context.Context, companyID int64) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pay_groups WHERE company_id = $1`, companyID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("paygroup: count company %d: %w", companyID, err)
	}
	return total, nil
}
