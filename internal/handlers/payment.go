package handlers

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/models"
	"github.com/example/lentil-life/internal/services"
)

// PaymentHandler serves Stripe-facing endpoints.
type PaymentHandler struct {
	db       *gorm.DB
	payments *services.PaymentService
	orders   *services.OrderService
	emails   *services.EmailService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(db *gorm.DB, payments *services.PaymentService, orders *services.OrderService, emails *services.EmailService) *PaymentHandler {
	return &PaymentHandler{db: db, payments: payments, orders: orders, emails: emails}
}

// Config exposes the publishable key to the frontend.
func (h *PaymentHandler) Config(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":        true,
		"publishableKey": h.payments.PublishableKey(),
	})
}

type createIntentRequest struct {
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// CreateIntent opens a payment intent for an arbitrary amount.
func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	var req createIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Amount <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "amount must be positive")
	}

	intent, err := h.payments.CreateIntent(req.Amount, req.Currency, req.Metadata)
	if err != nil {
		if errors.Is(err, services.ErrPaymentsNotConfigured) {
			return fiber.NewError(fiber.StatusBadGateway, "card payments are not available")
		}
		return fiber.NewError(fiber.StatusBadGateway, "failed to create payment intent")
	}

	return c.JSON(fiber.Map{"success": true, "data": intent})
}

// Status reports the gateway status of a payment intent.
func (h *PaymentHandler) Status(c *fiber.Ctx) error {
	intentID := c.Params("id")
	if intentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "payment intent id is required")
	}

	intent, err := h.payments.GetIntent(intentID)
	if err != nil {
		if errors.Is(err, services.ErrPaymentsNotConfigured) {
			return fiber.NewError(fiber.StatusBadGateway, "card payments are not available")
		}
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch payment intent")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":     intent.ID,
			"status": string(intent.Status),
			"amount": intent.Amount,
		},
	})
}

type confirmIntentRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

// Confirm confirms a payment intent server-side.
func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	var req confirmIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.PaymentIntentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "payment_intent_id is required")
	}

	intent, err := h.payments.ConfirmIntent(req.PaymentIntentID)
	if err != nil {
		if errors.Is(err, services.ErrPaymentsNotConfigured) {
			return fiber.NewError(fiber.StatusBadGateway, "card payments are not available")
		}
		return fiber.NewError(fiber.StatusBadGateway, "failed to confirm payment intent")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":     intent.ID,
			"status": string(intent.Status),
		},
	})
}

type refundRequest struct {
	PaymentIntentID string   `json:"payment_intent_id"`
	Amount          *float64 `json:"amount"`
}

// Refund issues a full or partial refund for a payment intent.
func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	var req refundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.PaymentIntentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "payment_intent_id is required")
	}

	refund, err := h.payments.CreateRefund(req.PaymentIntentID, req.Amount)
	if err != nil {
		if errors.Is(err, services.ErrPaymentsNotConfigured) {
			return fiber.NewError(fiber.StatusBadGateway, "card payments are not available")
		}
		return fiber.NewError(fiber.StatusBadGateway, "failed to create refund")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":     refund.ID,
			"status": string(refund.Status),
			"amount": refund.Amount,
		},
	})
}

// Fee previews the card processing fee for an amount.
func (h *PaymentHandler) Fee(c *fiber.Ctx) error {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Amount < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "amount must be non-negative")
	}

	fee := services.ProcessingFee(req.Amount)
	return c.JSON(fiber.Map{
		"success": true,
		"amount":  req.Amount,
		"fee":     fee,
		"total":   req.Amount + fee,
	})
}

// Webhook receives Stripe events. The signature is verified against the raw
// body before anything is trusted. Unmapped event types are acknowledged
// without action so the gateway does not retry them.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	event, err := h.payments.VerifyWebhook(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "webhook signature verification failed")
	}

	status, handled := services.OrderStatusForEvent(string(event.Type))
	if !handled {
		return c.JSON(fiber.Map{"success": true, "handled": false})
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed event payload")
	}

	order, err := h.findOrderForIntent(&intent)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Acknowledge so the gateway stops retrying an event we can
			// never match.
			log.Printf("[Payment] no order found for intent %s (%s)", intent.ID, event.Type)
			return c.JSON(fiber.Map{"success": true, "handled": false})
		}
		return err
	}

	updated, outcome, err := h.orders.UpdateStatus(order.ID, status)
	if err != nil {
		return err
	}
	log.Printf("[Payment] order %s moved to %s on %s", updated.ID, status, event.Type)

	if result := h.emails.SendStatusUpdate(updated, status, outcome); !result.Success && result.Error != "" {
		log.Printf("[Payment] status email for %s not sent: %s", updated.ID, result.Error)
	}

	return c.JSON(fiber.Map{"success": true, "handled": true, "order_id": updated.ID})
}

// findOrderForIntent resolves the order an intent belongs to, preferring the
// order_id stamped into the intent metadata and falling back to the stored
// intent ID.
func (h *PaymentHandler) findOrderForIntent(intent *stripe.PaymentIntent) (*models.Order, error) {
	if raw, ok := intent.Metadata["order_id"]; ok {
		if orderID, err := uuid.Parse(raw); err == nil {
			var order models.Order
			if err := h.db.First(&order, "id = ?", orderID).Error; err == nil {
				return &order, nil
			}
		}
	}

	var order models.Order
	if err := h.db.First(&order, "payment_intent_id = ?", intent.ID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
