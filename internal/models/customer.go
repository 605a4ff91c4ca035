package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a registered loyalty-program member. The phone number is the
// unique business key; the balance is only ever mutated through the ledger
// engine and never goes below zero.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Phone     string    `json:"phone"`
	FullName  string    `json:"full_name"`
	Age       int       `json:"age"`
	Sex       string    `json:"sex"`
	Balance   float64   `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}
