package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetRule returns nil when no reward rule has been configured yet.
func (r *Repository) GetRule(ctx context.Context) (*models.RewardRule, error) {
	var rule models.RewardRule
	row := r.pool.QueryRow(ctx, `
		SELECT percentage, updated_by, updated_at
		FROM reward_rule WHERE id = 1
	`)
	if err := row.Scan(&rule.Percentage, &rule.UpdatedBy, &rule.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// SetRule writes the single reward rule row. The table is keyed on a fixed
// id = 1, so concurrent first-time configurations resolve through the upsert
// instead of racing into duplicate rows.
func (r *Repository) SetRule(ctx context.Context, percentage float64, updatedBy uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reward_rule (id, percentage, updated_by, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET percentage = EXCLUDED.percentage,
			updated_by = EXCLUDED.updated_by,
			updated_at = now()
	`, percentage, updatedBy)
	return err
}

type Summary struct {
	TotalCustomers      int64   `json:"total_customers"`
	TotalSalesAmount    float64 `json:"total_sales_amount"`
	TotalPointsIssued   float64 `json:"total_points_issued"`
	TotalPointsRedeemed float64 `json:"total_points_redeemed"`
}

// GetSummary aggregates network-wide totals for the admin dashboard.
func (r *Repository) GetSummary(ctx context.Context) (*Summary, error) {
	var s Summary
	row := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM customers),
			COALESCE((SELECT sum(sale_amount) FROM transactions WHERE kind = 'ACCRUAL'), 0),
			COALESCE((SELECT sum(amount) FROM transactions WHERE kind = 'ACCRUAL'), 0),
			COALESCE((SELECT sum(-amount) FROM transactions WHERE kind = 'REDEMPTION'), 0)
	`)
	if err := row.Scan(&s.TotalCustomers, &s.TotalSalesAmount, &s.TotalPointsIssued, &s.TotalPointsRedeemed); err != nil {
		return nil, err
	}
	return &s, nil
}
