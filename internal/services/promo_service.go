package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/models"
)

// Promo validation failures. Checks run in a fixed order and the first
// failure wins, so the caller can render a specific message.
var (
	ErrInvalidCode        = errors.New("invalid or inactive promo code")
	ErrPromoExpired       = errors.New("promo code has expired")
	ErrUsageLimitReached  = errors.New("promo code usage limit reached")
	ErrNewUsersOnly       = errors.New("promo code is only for new users")
	ErrPromoAlreadyUsed   = errors.New("promo code already used by this user")
	ErrLocationRestricted = errors.New("promo code is not available in this location")
)

// PromoService validates and records promo code usage.
type PromoService struct {
	db *gorm.DB
}

// NewPromoService constructs a PromoService.
func NewPromoService(db *gorm.DB) *PromoService {
	return &PromoService{db: db}
}

func (s *PromoService) find(code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := s.db.Where("code = ? AND is_active = ?", strings.ToUpper(strings.TrimSpace(code)), true).
		First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	return &promo, nil
}

func checkWindow(promo *models.PromoCode, now time.Time) error {
	if promo.ValidFrom != nil && now.Before(*promo.ValidFrom) {
		return ErrPromoExpired
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return ErrPromoExpired
	}
	return nil
}

func checkUsageLimit(promo *models.PromoCode) error {
	if promo.UsageLimit > 0 && promo.UsedCount >= promo.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// ValidatePublic checks a code without a user context: existence, active
// flag, validity window, and usage limit. Used by the signup form.
func (s *PromoService) ValidatePublic(code string) (*models.PromoCode, error) {
	promo, err := s.find(code)
	if err != nil {
		return nil, err
	}
	if err := checkWindow(promo, time.Now()); err != nil {
		return nil, err
	}
	if err := checkUsageLimit(promo); err != nil {
		return nil, err
	}
	return promo, nil
}

// Validate runs the full check sequence for a known user: existence and
// active flag, validity window, usage limit, new-user restriction, prior
// usage, then location allow-lists. The location check is skipped, not
// failed, when the user profile has no location data.
func (s *PromoService) Validate(userID uuid.UUID, code string, isNewUser bool) (*models.PromoCode, error) {
	promo, err := s.find(code)
	if err != nil {
		return nil, err
	}
	if err := checkWindow(promo, time.Now()); err != nil {
		return nil, err
	}
	if err := checkUsageLimit(promo); err != nil {
		return nil, err
	}
	if promo.NewUsersOnly && !isNewUser {
		return nil, ErrNewUsersOnly
	}

	var usage models.PromoUsage
	err = s.db.Where("user_id = ? AND promo_code_id = ?", userID, promo.ID).First(&usage).Error
	if err == nil {
		return nil, ErrPromoAlreadyUsed
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if len(promo.RestrictedCities) > 0 || len(promo.RestrictedStates) > 0 {
		var user models.User
		if err := s.db.First(&user, "id = ?", userID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if user.HasLocation() {
			if len(promo.RestrictedCities) > 0 && !promo.RestrictedCities.Contains(user.City) {
				return nil, ErrLocationRestricted
			}
			if len(promo.RestrictedStates) > 0 && !promo.RestrictedStates.Contains(user.State) {
				return nil, ErrLocationRestricted
			}
		}
	}

	return promo, nil
}

// RecordUsage writes the usage row and bumps the code's counter atomically.
func (s *PromoService) RecordUsage(userID, promoID uuid.UUID, orderID *uuid.UUID, discount float64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		usage := models.PromoUsage{
			UserID:         userID,
			PromoCodeID:    promoID,
			OrderID:        orderID,
			DiscountAmount: discount,
		}
		if err := tx.Create(&usage).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrPromoAlreadyUsed
			}
			return err
		}
		return tx.Model(&models.PromoCode{}).
			Where("id = ?", promoID).
			Update("used_count", gorm.Expr("used_count + ?", 1)).Error
	})
}

// Discount computes the discount a promo yields on an order total. Orders
// below the minimum get no discount.
func (s *PromoService) Discount(promo *models.PromoCode, orderTotal float64) float64 {
	if promo == nil || orderTotal < promo.MinOrderAmount {
		return 0
	}
	switch promo.DiscountType {
	case models.DiscountTypePercent:
		return orderTotal * promo.DiscountValue / 100
	case models.DiscountTypeFixed:
		if promo.DiscountValue > orderTotal {
			return orderTotal
		}
		return promo.DiscountValue
	default:
		return 0
	}
}
