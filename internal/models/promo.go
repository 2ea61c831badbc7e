package models

import (
	"time"

	"github.com/google/uuid"
)

// Discount types for promo codes.
const (
	DiscountTypePercent = "percent"
	DiscountTypeFixed   = "fixed"
)

// PromoCode is a discount code. Codes are stored upper-cased and matched
// case-insensitively at the boundary.
type PromoCode struct {
	BaseModel
	Code             string     `gorm:"uniqueIndex" json:"code"`
	Description      string     `json:"description"`
	IsActive         bool       `gorm:"index" json:"is_active"`
	DiscountType     string     `gorm:"type:varchar(16)" json:"discount_type"`
	DiscountValue    float64    `json:"discount_value"`
	MinOrderAmount   float64    `json:"min_order_amount"`
	UsageLimit       int        `json:"usage_limit"`
	UsedCount        int        `json:"used_count"`
	ValidFrom        *time.Time `json:"valid_from"`
	ValidUntil       *time.Time `json:"valid_until"`
	NewUsersOnly     bool       `json:"new_users_only"`
	RestrictedCities StringList `gorm:"type:jsonb" json:"restricted_cities"`
	RestrictedStates StringList `gorm:"type:jsonb" json:"restricted_states"`
}

// PromoUsage records that a user redeemed a promo code. The unique
// (user_id, promo_code_id) index enforces at-most-once use per user.
type PromoUsage struct {
	BaseModel
	UserID         uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_promo_usage_user_code" json:"user_id"`
	PromoCodeID    uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_promo_usage_user_code" json:"promo_code_id"`
	OrderID        *uuid.UUID `gorm:"type:uuid" json:"order_id"`
	DiscountAmount float64    `json:"discount_amount"`
}
