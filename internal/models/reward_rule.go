package models

import (
	"time"

	"github.com/google/uuid"
)

// RewardRule is the single mutable record holding the current reward
// percentage (points credited per 100 of sale amount, 2-decimal precision).
type RewardRule struct {
	Percentage float64    `json:"percentage"`
	UpdatedBy  *uuid.UUID `json:"updated_by,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}
