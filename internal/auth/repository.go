package auth

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

// GetByUsername returns the staff member and password hash for login.
// Returns nil staff when no such username exists.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.Staff, string, error) {
	var s models.Staff
	var hash string
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, full_name, role, active, created_at, password_hash
		FROM staff WHERE username = $1
	`, username)
	if err := row.Scan(&s.ID, &s.Username, &s.FullName, &s.Role, &s.Active, &s.CreatedAt, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &s, hash, nil
}

func (r *Repository) Create(ctx context.Context, fullName, username, passwordHash, role string) (*models.Staff, error) {
	var s models.Staff
	row := r.pool.QueryRow(ctx, `
		INSERT INTO staff (full_name, username, password_hash, role, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, username, full_name, role, active, created_at
	`, fullName, username, passwordHash, role)
	if err := row.Scan(&s.ID, &s.Username, &s.FullName, &s.Role, &s.Active, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	var s models.Staff
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, full_name, role, active, created_at
		FROM staff WHERE id = $1
	`, id)
	if err := row.Scan(&s.ID, &s.Username, &s.FullName, &s.Role, &s.Active, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Update overwrites only the given fields; nil arguments keep the stored value.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fullName, role *string, active *bool, passwordHash *string) (*models.Staff, error) {
	var s models.Staff
	row := r.pool.QueryRow(ctx, `
		UPDATE staff SET
			full_name = COALESCE($1, full_name),
			role = COALESCE($2, role),
			active = COALESCE($3, active),
			password_hash = COALESCE($4, password_hash)
		WHERE id = $5
		RETURNING id, username, full_name, role, active, created_at
	`, fullName, role, active, passwordHash, id)
	if err := row.Scan(&s.ID, &s.Username, &s.FullName, &s.Role, &s.Active, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Deactivate flips the staff member inactive, keeping the row for history.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	var s models.Staff
	row := r.pool.QueryRow(ctx, `
		UPDATE staff SET active = FALSE
		WHERE id = $1
		RETURNING id, username, full_name, role, active, created_at
	`, id)
	if err := row.Scan(&s.ID, &s.Username, &s.FullName, &s.Role, &s.Active, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) List(ctx context.Context) ([]*models.Staff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, username, full_name, role, active, created_at
		FROM staff ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Staff
	for rows.Next() {
		var s models.Staff
		if err := rows.Scan(&s.ID, &s.Username, &s.FullName, &s.Role, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
