package models

import (
	"time"

	"github.com/google/uuid"
)

// Points transaction types. The ledger is append-only; rows are never
// mutated or deleted after creation.
const (
	PointsTransactionEarned   = "earned"
	PointsTransactionSpent    = "spent"
	PointsTransactionRefunded = "refunded"
	PointsTransactionExpired  = "expired"
	PointsTransactionBonus    = "bonus"
)

// PointsAccount caches the running balance for a user. It is updated in the
// same database transaction as every ledger append, so it always equals the
// sum of that user's transaction amounts.
type PointsAccount struct {
	BaseModel
	UserID         uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Balance        int       `json:"balance"`
	LifetimeEarned int       `json:"lifetime_earned"`
}

// PointsTransaction is one ledger entry. The unique (order_id, type) index
// is what makes award and refund one-shot per order: a second earned or
// refunded row for the same order violates the constraint.
type PointsTransaction struct {
	BaseModel
	UserID      uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	OrderID     *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_points_tx_order_type" json:"order_id"`
	Type        string     `gorm:"type:varchar(16);uniqueIndex:idx_points_tx_order_type" json:"type"`
	Amount      int        `json:"amount"`
	PointsRate  float64    `json:"points_rate"`
	OrderAmount float64    `json:"order_amount"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// PointsConfig holds the loyalty program parameters. A single active row is
// expected; PointsService falls back to defaults when none exists.
type PointsConfig struct {
	BaseModel
	PointsPerDollar    float64 `json:"points_per_dollar"`
	MinOrderForPoints  float64 `json:"min_order_for_points"`
	SignupBonusPoints  int     `json:"signup_bonus_points"`
	PointsExpiryMonths *int    `json:"points_expiry_months"`
	IsActive           bool    `gorm:"index" json:"is_active"`
}

// DefaultPointsConfig mirrors the fallback used when no config row is active.
func DefaultPointsConfig() PointsConfig {
	return PointsConfig{
		PointsPerDollar:   1.0,
		MinOrderForPoints: 0.0,
		IsActive:          true,
	}
}
