package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/models"
)

// isConflict reports whether err is a transient transaction conflict worth
// retrying: serialization_failure (40001) or deadlock_detected (40P01).
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

type CustomerRepo struct {
	pool *pgxpool.Pool
}

func NewCustomerRepo(pool *pgxpool.Pool) *CustomerRepo {
	return &CustomerRepo{pool: pool}
}

func (r *CustomerRepo) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var c models.Customer
	row := r.pool.QueryRow(ctx, `
		SELECT id, phone, full_name, balance, created_at
		FROM customers WHERE phone = $1
	`, phone)
	if err := row.Scan(&c.ID, &c.Phone, &c.FullName, &c.Balance, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetByPhoneForUpdate locks the customer row until the transaction ends.
func (r *CustomerRepo) GetByPhoneForUpdate(ctx context.Context, tx pgx.Tx, phone string) (*models.Customer, error) {
	var c models.Customer
	row := tx.QueryRow(ctx, `
		SELECT id, phone, full_name, balance, created_at
		FROM customers WHERE phone = $1
		FOR UPDATE
	`, phone)
	if err := row.Scan(&c.ID, &c.Phone, &c.FullName, &c.Balance, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) AddPoints(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta float64) (float64, error) {
	var newBalance float64
	row := tx.QueryRow(ctx, `
		UPDATE customers SET balance = balance + $1
		WHERE id = $2
		RETURNING balance
	`, delta, id)
	if err := row.Scan(&newBalance); err != nil {
		return 0, err
	}
	return newBalance, nil
}

type RuleRepo struct {
	pool *pgxpool.Pool
}

func NewRuleRepo(pool *pgxpool.Pool) *RuleRepo {
	return &RuleRepo{pool: pool}
}

func (r *RuleRepo) CurrentPercentageTx(ctx context.Context, tx pgx.Tx) (float64, error) {
	var pct float64
	row := tx.QueryRow(ctx, `SELECT percentage FROM reward_rule WHERE id = 1`)
	if err := row.Scan(&pct); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrRuleNotConfigured
		}
		return 0, err
	}
	return pct, nil
}

type EntryRepo struct {
	pool *pgxpool.Pool
}

func NewEntryRepo(pool *pgxpool.Pool) *EntryRepo {
	return &EntryRepo{pool: pool}
}

func (r *EntryRepo) CreateTx(ctx context.Context, tx pgx.Tx, entry *models.Transaction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, customer_id, staff_id, amount, kind, sale_amount, percentage)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.CustomerID, entry.StaffID, entry.Amount, entry.Kind, entry.SaleAmount, entry.Percentage)
	return err
}

func (r *EntryRepo) ListRecent(ctx context.Context, limit, offset int) ([]*models.TransactionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.kind, t.amount, t.sale_amount, t.percentage,
			c.full_name, s.full_name, t.created_at
		FROM transactions t
		JOIN customers c ON c.id = t.customer_id
		JOIN staff s ON s.id = t.staff_id
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.TransactionRecord
	for rows.Next() {
		var rec models.TransactionRecord
		err := rows.Scan(&rec.ID, &rec.Kind, &rec.Amount, &rec.SaleAmount, &rec.Percentage,
			&rec.CustomerName, &rec.StaffName, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		list = append(list, &rec)
	}
	return list, rows.Err()
}
