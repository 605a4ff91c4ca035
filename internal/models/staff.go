package models

import (
	"time"

	"github.com/google/uuid"
)

// Staff roles.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// ValidRole reports whether role is one of the known staff roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCashier
}

type Staff struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
