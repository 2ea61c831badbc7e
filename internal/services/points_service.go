package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/models"
)

var (
	// ErrInsufficientBalance is returned by Spend when the user's balance
	// is lower than the requested amount. Nothing is written in that case.
	ErrInsufficientBalance = errors.New("insufficient points balance")
	// ErrNoPointsForOrder is returned by Refund when the order never earned
	// points for this user.
	ErrNoPointsForOrder = errors.New("no earned points found for this order")
	// ErrAlreadyAwarded and ErrAlreadyRefunded surface the ledger's unique
	// (order_id, type) constraint: each order is awarded and refunded at
	// most once regardless of how often a status transition is replayed.
	ErrAlreadyAwarded  = errors.New("points already awarded for this order")
	ErrAlreadyRefunded = errors.New("points already refunded for this order")
)

// PointsService maintains the loyalty ledger. Every write appends a
// transaction row and adjusts the cached account inside one database
// transaction, so the account balance always equals the ledger sum.
type PointsService struct {
	db *gorm.DB
}

// NewPointsService constructs a PointsService.
func NewPointsService(db *gorm.DB) *PointsService {
	return &PointsService{db: db}
}

// Config returns the active loyalty configuration, falling back to defaults
// when no row is active.
func (s *PointsService) Config() models.PointsConfig {
	var cfg models.PointsConfig
	if err := s.db.Where("is_active = ?", true).First(&cfg).Error; err != nil {
		return models.DefaultPointsConfig()
	}
	return cfg
}

// UpdateConfig applies partial updates to the active configuration row,
// creating it when missing.
func (s *PointsService) UpdateConfig(updates map[string]interface{}) (models.PointsConfig, error) {
	var cfg models.PointsConfig
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("is_active = ?", true).First(&cfg).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			cfg = models.DefaultPointsConfig()
			if err := tx.Create(&cfg).Error; err != nil {
				return err
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&cfg).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&cfg, "id = ?", cfg.ID).Error
	})
	return cfg, err
}

// CalculatePoints returns the points an order amount earns under the active
// configuration: zero below the minimum, floor(amount*rate) otherwise.
func (s *PointsService) CalculatePoints(orderAmount float64) int {
	return calculatePoints(orderAmount, s.Config())
}

func calculatePoints(orderAmount float64, cfg models.PointsConfig) int {
	if orderAmount < cfg.MinOrderForPoints {
		return 0
	}
	points := int(math.Floor(orderAmount * cfg.PointsPerDollar))
	if points < 0 {
		return 0
	}
	return points
}

// AwardResult reports the outcome of an Award call. Qualified is false when
// the order amount does not earn any points; that is not an error.
type AwardResult struct {
	Qualified    bool
	PointsEarned int
	PointsRate   float64
	Transaction  *models.PointsTransaction
}

// Award appends an earned transaction for the order and credits the account.
func (s *PointsService) Award(userID, orderID uuid.UUID, orderAmount float64) (*AwardResult, error) {
	cfg := s.Config()
	points := calculatePoints(orderAmount, cfg)
	if points <= 0 {
		return &AwardResult{Qualified: false}, nil
	}

	var expiresAt *time.Time
	if cfg.PointsExpiryMonths != nil {
		t := time.Now().AddDate(0, *cfg.PointsExpiryMonths, 0)
		expiresAt = &t
	}

	txn := models.PointsTransaction{
		UserID:      userID,
		OrderID:     &orderID,
		Type:        models.PointsTransactionEarned,
		Amount:      points,
		PointsRate:  cfg.PointsPerDollar,
		OrderAmount: orderAmount,
		Description: fmt.Sprintf("Points earned from order %s", orderID),
		ExpiresAt:   expiresAt,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&txn).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyAwarded
			}
			return err
		}
		return adjustAccount(tx, userID, points, true)
	})
	if err != nil {
		return nil, err
	}

	return &AwardResult{
		Qualified:    true,
		PointsEarned: points,
		PointsRate:   cfg.PointsPerDollar,
		Transaction:  &txn,
	}, nil
}

// SpendResult reports a successful Spend.
type SpendResult struct {
	PointsSpent int
	NewBalance  int
	Transaction *models.PointsTransaction
}

// Spend deducts points from the user's balance. When the balance is too low
// it returns ErrInsufficientBalance and leaves the ledger untouched.
func (s *PointsService) Spend(userID uuid.UUID, points int, orderID *uuid.UUID, description string) (*SpendResult, error) {
	if description == "" {
		description = "Points spent"
	}

	result := &SpendResult{PointsSpent: points}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var account models.PointsAccount
		if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInsufficientBalance
			}
			return err
		}
		if account.Balance < points {
			return ErrInsufficientBalance
		}

		txn := models.PointsTransaction{
			UserID:      userID,
			OrderID:     orderID,
			Type:        models.PointsTransactionSpent,
			Amount:      -points,
			Description: description,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		if err := adjustAccount(tx, userID, -points, false); err != nil {
			return err
		}

		result.NewBalance = account.Balance - points
		result.Transaction = &txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RefundResult reports a successful Refund.
type RefundResult struct {
	PointsRefunded int
	Transaction    *models.PointsTransaction
}

// Refund reverses the earned transaction for an order by appending a
// refunded transaction with the exact negated amount.
func (s *PointsService) Refund(userID, orderID uuid.UUID) (*RefundResult, error) {
	result := &RefundResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var original models.PointsTransaction
		err := tx.Where("user_id = ? AND order_id = ? AND type = ?",
			userID, orderID, models.PointsTransactionEarned).First(&original).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoPointsForOrder
			}
			return err
		}

		refund := models.PointsTransaction{
			UserID:      userID,
			OrderID:     &orderID,
			Type:        models.PointsTransactionRefunded,
			Amount:      -original.Amount,
			Description: fmt.Sprintf("Points refunded for cancelled order %s", orderID),
		}
		if err := tx.Create(&refund).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyRefunded
			}
			return err
		}
		if err := adjustAccount(tx, userID, -original.Amount, false); err != nil {
			return err
		}

		result.PointsRefunded = original.Amount
		result.Transaction = &refund
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SignupBonus credits the configured signup bonus, if any.
func (s *PointsService) SignupBonus(userID uuid.UUID) (*AwardResult, error) {
	cfg := s.Config()
	if cfg.SignupBonusPoints <= 0 {
		return &AwardResult{Qualified: false}, nil
	}

	txn := models.PointsTransaction{
		UserID:      userID,
		Type:        models.PointsTransactionBonus,
		Amount:      cfg.SignupBonusPoints,
		Description: "Signup bonus",
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		return adjustAccount(tx, userID, cfg.SignupBonusPoints, true)
	})
	if err != nil {
		return nil, err
	}
	return &AwardResult{Qualified: true, PointsEarned: cfg.SignupBonusPoints, Transaction: &txn}, nil
}

// Balance returns the user's account, or a zero-value account when the user
// has no ledger history yet.
func (s *PointsService) Balance(userID uuid.UUID) (models.PointsAccount, error) {
	var account models.PointsAccount
	if err := s.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PointsAccount{UserID: userID}, nil
		}
		return account, err
	}
	return account, nil
}

// History returns the user's transactions, most recent first.
func (s *PointsService) History(userID uuid.UUID, limit int) ([]models.PointsTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []models.PointsTransaction
	err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

func adjustAccount(tx *gorm.DB, userID uuid.UUID, delta int, countsAsEarned bool) error {
	var account models.PointsAccount
	err := tx.Where("user_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = models.PointsAccount{UserID: userID}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"balance": gorm.Expr("balance + ?", delta),
	}
	if countsAsEarned && delta > 0 {
		updates["lifetime_earned"] = gorm.Expr("lifetime_earned + ?", delta)
	}
	return tx.Model(&models.PointsAccount{}).Where("user_id = ?", userID).Updates(updates).Error
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
