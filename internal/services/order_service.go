package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/models"
)

// ErrSlotFull is returned when the requested pickup window has no capacity
// left at commit time.
var ErrSlotFull = errors.New("pickup time slot is fully booked")

// OrderService owns the order lifecycle: creation, status transitions, and
// the points side effects that fire on transition.
type OrderService struct {
	db     *gorm.DB
	points *PointsService
	slots  *TimeSlotService
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, points *PointsService, slots *TimeSlotService) *OrderService {
	return &OrderService{db: db, points: points, slots: slots}
}

// Create persists the order and its items. When the pickup window matches a
// configured slot, capacity is re-checked inside the same transaction as the
// insert so concurrent bookings cannot race past the cap.
func (s *OrderService) Create(order *models.Order) error {
	slot, err := s.slots.FindSlotByLabel(order.PickupTime)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if slot != nil {
			booked, err := CountBookedOrders(tx, order.PickupDate, order.PickupTime)
			if err != nil {
				return err
			}
			if booked >= int64(slot.MaxOrders) {
				return ErrSlotFull
			}
		}
		return tx.Create(order).Error
	})
}

// Get loads an order with its items.
func (s *OrderService) Get(id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns orders newest first, optionally filtered by status.
func (s *OrderService) List(status models.OrderStatus, limit, offset int) ([]models.Order, int64, error) {
	query := s.db.Model(&models.Order{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.Preload("Items").
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	return orders, total, err
}

// ListForUser returns the user's own orders, newest first.
func (s *OrderService) ListForUser(userID uuid.UUID, limit, offset int) ([]models.Order, int64, error) {
	query := s.db.Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.Preload("Items").
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	return orders, total, err
}

// PointsOutcome describes the loyalty side effect of a status transition,
// when one fired.
type PointsOutcome struct {
	PointsAwarded  int                       `json:"points_awarded,omitempty"`
	PointsRefunded int                       `json:"points_refunded,omitempty"`
	Transaction    *models.PointsTransaction `json:"transaction,omitempty"`
}

// UpdateStatus persists the new status and fires the transition side
// effects: entering completed awards points, leaving completed for
// cancelled refunds them. Points failures are logged, never surfaced — the
// status update itself is the primary operation. Replayed transitions
// cannot double-award or double-refund because the ledger enforces one
// earned and one refunded row per order.
func (s *OrderService) UpdateStatus(id uuid.UUID, newStatus models.OrderStatus) (*models.Order, *PointsOutcome, error) {
	order, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}

	previous := order.Status
	if err := s.db.Model(&models.Order{}).Where("id = ?", id).Update("status", newStatus).Error; err != nil {
		return nil, nil, err
	}
	order.Status = newStatus

	var outcome *PointsOutcome
	if order.UserID != nil {
		switch {
		case newStatus == models.OrderStatusCompleted && previous != models.OrderStatusCompleted:
			result, err := s.points.Award(*order.UserID, order.ID, order.Total)
			if err != nil {
				log.Printf("[Order] failed to award points for order %s: %v", order.ID, err)
			} else if result.Qualified {
				log.Printf("[Order] awarded %d points to user %s for order %s", result.PointsEarned, order.UserID, order.ID)
				outcome = &PointsOutcome{PointsAwarded: result.PointsEarned, Transaction: result.Transaction}
			}
		case newStatus == models.OrderStatusCancelled && previous == models.OrderStatusCompleted:
			result, err := s.points.Refund(*order.UserID, order.ID)
			if err != nil {
				log.Printf("[Order] failed to refund points for order %s: %v", order.ID, err)
			} else {
				log.Printf("[Order] refunded %d points to user %s for cancelled order %s", result.PointsRefunded, order.UserID, order.ID)
				outcome = &PointsOutcome{PointsRefunded: result.PointsRefunded, Transaction: result.Transaction}
			}
		}
	}

	return order, outcome, nil
}

// Delete hard-deletes an order and its items. No point or payment
// compensation is performed.
func (s *OrderService) Delete(id uuid.UUID) (bool, error) {
	var deleted bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.OrderItem{}, "order_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Order{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// Receipt is the invoice view of an order.
type Receipt struct {
	OrderID             uuid.UUID          `json:"order_id"`
	OrderDate           string             `json:"order_date"`
	CustomerName        string             `json:"customer_name"`
	CustomerEmail       string             `json:"customer_email"`
	Items               []models.OrderItem `json:"items"`
	PickupDate          string             `json:"pickup_date"`
	PickupTime          string             `json:"pickup_time"`
	SpecialInstructions string             `json:"special_instructions"`
	Subtotal            float64            `json:"subtotal"`
	Tax                 float64            `json:"tax"`
	Total               float64            `json:"total"`
	Status              models.OrderStatus `json:"status"`
}

// BuildReceipt computes the receipt for an order.
func BuildReceipt(order *models.Order) Receipt {
	var subtotal float64
	for _, item := range order.Items {
		subtotal += item.LineTotal()
	}
	return Receipt{
		OrderID:             order.ID,
		OrderDate:           order.CreatedAt.Format(DateFormat),
		CustomerName:        order.CustomerName,
		CustomerEmail:       order.CustomerEmail,
		Items:               order.Items,
		PickupDate:          order.PickupDate,
		PickupTime:          order.PickupTime,
		SpecialInstructions: order.SpecialInstructions,
		Subtotal:            subtotal,
		Tax:                 0,
		Total:               order.Total,
		Status:              order.Status,
	}
}
