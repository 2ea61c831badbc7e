package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// OrderStatus is the closed set of order lifecycle states. Legacy clients
// send mixed-case spaced values ("Pending Cash Payment"); those are accepted
// by ParseOrderStatus but never stored.
type OrderStatus string

const (
	OrderStatusPending             OrderStatus = "pending"
	OrderStatusPendingPayment      OrderStatus = "pending_payment"
	OrderStatusPendingVenmoPayment OrderStatus = "pending_venmo_payment"
	OrderStatusPendingCashPayment  OrderStatus = "pending_cash_payment"
	OrderStatusPaid                OrderStatus = "paid"
	OrderStatusPreparing           OrderStatus = "preparing"
	OrderStatusReady               OrderStatus = "ready"
	OrderStatusCompleted           OrderStatus = "completed"
	OrderStatusCancelled           OrderStatus = "cancelled"
	OrderStatusPaymentFailed       OrderStatus = "payment_failed"
	OrderStatusRefunded            OrderStatus = "refunded"
)

// ParseOrderStatus normalizes a status value received at the API boundary.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	if normalized == "canceled" {
		normalized = "cancelled"
	}

	status := OrderStatus(normalized)
	switch status {
	case OrderStatusPending, OrderStatusPendingPayment, OrderStatusPendingVenmoPayment,
		OrderStatusPendingCashPayment, OrderStatusPaid, OrderStatusPreparing,
		OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled,
		OrderStatusPaymentFailed, OrderStatusRefunded:
		return status, nil
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}

// InitialOrderStatus picks the starting state for a new order based on the
// requested payment method.
func InitialOrderStatus(paymentMethod string) OrderStatus {
	switch strings.ToLower(strings.TrimSpace(paymentMethod)) {
	case "card":
		return OrderStatusPendingPayment
	case "venmo":
		return OrderStatusPendingVenmoPayment
	case "cash":
		return OrderStatusPendingCashPayment
	default:
		return OrderStatusPending
	}
}

type Order struct {
	BaseModel
	UserID              *uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	CustomerName        string      `json:"customer_name"`
	CustomerEmail       string      `gorm:"index" json:"customer_email"`
	CustomerPhone       string      `json:"customer_phone"`
	PickupDate          string      `gorm:"index" json:"pickup_date"`
	PickupTime          string      `json:"pickup_time"`
	Status              OrderStatus `gorm:"type:varchar(32);index" json:"status"`
	Subtotal            float64     `json:"subtotal"`
	Total               float64     `json:"total"`
	PaymentMethod       string      `json:"payment_method"`
	PaymentIntentID     string      `json:"payment_intent_id"`
	SpecialInstructions string      `json:"special_instructions"`
	Items               []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID    uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	MenuItemID *uuid.UUID `gorm:"type:uuid" json:"menu_item_id"`
	Name       string     `json:"name"`
	UnitPrice  float64    `json:"unit_price"`
	Quantity   int        `json:"quantity"`
	Note       string     `json:"note"`
}

// LineTotal is the extended price for one order line.
func (i OrderItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}
