package customers

import (
	"context"
	"errors"

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

// FindByPhone returns nil when no customer has the given phone number.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var c models.Customer
	row := r.pool.QueryRow(ctx, `
		SELECT id, phone, full_name, age, sex, balance, created_at
		FROM customers WHERE phone = $1
	`, phone)
	if err := row.Scan(&c.ID, &c.Phone, &c.FullName, &c.Age, &c.Sex, &c.Balance, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, phone, fullName string, age int, sex string) (*models.Customer, error) {
	var c models.Customer
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (phone, full_name, age, sex, balance)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING id, phone, full_name, age, sex, balance, created_at
	`, phone, fullName, age, sex)
	if err := row.Scan(&c.ID, &c.Phone, &c.FullName, &c.Age, &c.Sex, &c.Balance, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
