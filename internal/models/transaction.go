package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger movement kinds.
const (
	KindAccrual    = "ACCRUAL"
	KindRedemption = "REDEMPTION"
)

// Transaction is one immutable ledger entry. Amount is signed: positive for
// accruals, negative for redemptions. SaleAmount and Percentage are set only
// on accruals; Percentage is the reward percentage captured at write time and
// is never re-derived from the current rule.
type Transaction struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`
	StaffID    uuid.UUID `json:"staff_id"`
	Amount     float64   `json:"amount"`
	Kind       string    `json:"kind"`
	SaleAmount *float64  `json:"sale_amount,omitempty"`
	Percentage *float64  `json:"percentage,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TransactionRecord is a history row joined with the customer and staff
// display names, as shown on the admin dashboard.
type TransactionRecord struct {
	ID           uuid.UUID `json:"id"`
	Kind         string    `json:"kind"`
	Amount       float64   `json:"amount"`
	SaleAmount   *float64  `json:"sale_amount,omitempty"`
	Percentage   *float64  `json:"percentage,omitempty"`
	CustomerName string    `json:"customer_name"`
	StaffName    string    `json:"staff_name"`
	CreatedAt    time.Time `json:"created_at"`
}
