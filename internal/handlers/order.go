package handlers

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/middleware"
	"github.com/example/lentil-life/internal/models"
	"github.com/example/lentil-life/internal/services"
	"github.com/example/lentil-life/internal/utils"
)

// OrderHandler serves order placement and lifecycle endpoints.
type OrderHandler struct {
	db       *gorm.DB
	orders   *services.OrderService
	points   *services.PointsService
	promos   *services.PromoService
	payments *services.PaymentService
	emails   *services.EmailService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(db *gorm.DB, orders *services.OrderService, points *services.PointsService, promos *services.PromoService, payments *services.PaymentService, emails *services.EmailService) *OrderHandler {
	return &OrderHandler{db: db, orders: orders, points: points, promos: promos, payments: payments, emails: emails}
}

type orderItemRequest struct {
	MenuItemID *uuid.UUID `json:"menu_item_id"`
	Name       string     `json:"name"`
	UnitPrice  float64    `json:"unit_price"`
	Quantity   int        `json:"quantity"`
	Note       string     `json:"note"`
}

type createOrderRequest struct {
	CustomerName        string             `json:"customer_name"`
	CustomerEmail       string             `json:"customer_email"`
	CustomerPhone       string             `json:"customer_phone"`
	PickupDate          string             `json:"pickup_date"`
	PickupTime          string             `json:"pickup_time"`
	PaymentMethod       string             `json:"payment_method"`
	SpecialInstructions string             `json:"special_instructions"`
	PromoCode           string             `json:"promo_code"`
	RedeemPoints        int                `json:"redeem_points"`
	Items               []orderItemRequest `json:"items"`
}

// Create places a new order. Prices for catalog items are resolved from the
// menu, never trusted from the client. Card orders additionally get a Stripe
// payment intent whose client secret is returned for frontend confirmation.
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "order must contain at least one item")
	}
	if req.CustomerName == "" || req.PickupDate == "" || req.PickupTime == "" {
		return fiber.NewError(fiber.StatusBadRequest, "customer_name, pickup_date and pickup_time are required")
	}
	if _, err := time.Parse(services.DateFormat, req.PickupDate); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "pickup_date must be formatted as YYYY-MM-DD")
	}

	order := models.Order{
		CustomerName:        req.CustomerName,
		CustomerEmail:       req.CustomerEmail,
		CustomerPhone:       req.CustomerPhone,
		PickupDate:          req.PickupDate,
		PickupTime:          req.PickupTime,
		PaymentMethod:       req.PaymentMethod,
		SpecialInstructions: req.SpecialInstructions,
		Status:              models.InitialOrderStatus(req.PaymentMethod),
	}

	userID, authenticated := middleware.GetCurrentUserID(c)
	if authenticated {
		order.UserID = &userID
	}

	subtotal, items, err := h.resolveItems(req.Items)
	if err != nil {
		return err
	}
	order.Items = items
	order.Subtotal = subtotal
	order.Total = subtotal

	// Promo redemption is tied to a user account so every use lands in
	// promo_usages and counts against the usage limit.
	var promo *models.PromoCode
	var discount float64
	if req.PromoCode != "" {
		if !authenticated {
			return fiber.NewError(fiber.StatusUnauthorized, "sign in to apply a promo code")
		}
		promo, err = h.promos.Validate(userID, req.PromoCode, false)
		if err != nil {
			if reason, ok := promoRejection(err); ok {
				return fiber.NewError(fiber.StatusBadRequest, reason)
			}
			return err
		}
		discount = h.promos.Discount(promo, order.Total)
		order.Total -= discount
	}

	// Points redemption: 1 point = $0.01, capped at the remaining total.
	// The balance is checked before the order is priced so the discount is
	// never persisted without the points to back it.
	var redeemed int
	if req.RedeemPoints > 0 {
		if !authenticated {
			return fiber.NewError(fiber.StatusUnauthorized, "sign in to redeem points")
		}
		account, err := h.points.Balance(userID)
		if err != nil {
			return err
		}
		if req.RedeemPoints > account.Balance {
			return fiber.NewError(fiber.StatusBadRequest, "insufficient points balance")
		}
		redeemed = req.RedeemPoints
		if ceiling := int(order.Total * 100); redeemed > ceiling {
			redeemed = ceiling
		}
	}
	order.Total -= float64(redeemed) / 100

	if err := h.orders.Create(&order); err != nil {
		if errors.Is(err, services.ErrSlotFull) {
			return fiber.NewError(fiber.StatusConflict, "selected pickup time is fully booked")
		}
		return err
	}

	if promo != nil {
		if err := h.promos.RecordUsage(userID, promo.ID, &order.ID, discount); err != nil {
			log.Printf("[Order] failed to record promo usage for order %s: %v", order.ID, err)
		}
	}

	if redeemed > 0 {
		desc := fmt.Sprintf("Redeemed on order %s", order.ID)
		if _, err := h.points.Spend(userID, redeemed, &order.ID, desc); err != nil {
			// Concurrent spend drained the balance between the check and
			// the deduction: reprice the order at the undiscounted total.
			log.Printf("[Order] failed to redeem %d points for order %s: %v", redeemed, order.ID, err)
			order.Total += float64(redeemed) / 100
			if err := h.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("total", order.Total).Error; err != nil {
				return err
			}
			redeemed = 0
		}
	}

	// The payment intent is a side effect of checkout, not a gate: the
	// order already exists, so a gateway failure is logged and the client
	// retries payment later.
	var payment *services.PaymentIntentResult
	if order.Status == models.OrderStatusPendingPayment {
		intent, err := h.payments.CreateIntent(order.Total, "usd", map[string]string{
			"order_id":       order.ID.String(),
			"customer_email": order.CustomerEmail,
		})
		if err != nil {
			log.Printf("[Order] failed to create payment intent for order %s: %v", order.ID, err)
		} else if err := h.db.Model(&order).Update("payment_intent_id", intent.PaymentIntentID).Error; err != nil {
			log.Printf("[Order] failed to store payment intent %s on order %s: %v", intent.PaymentIntentID, order.ID, err)
		} else {
			order.PaymentIntentID = intent.PaymentIntentID
			payment = intent
		}
	}

	response := fiber.Map{
		"success": true,
		"data":    order,
	}
	if discount > 0 {
		response["discount"] = discount
	}
	if redeemed > 0 {
		response["points_redeemed"] = redeemed
	}
	if payment != nil {
		response["payment"] = payment
	}

	pointsPreview := 0
	if order.UserID != nil {
		pointsPreview = h.points.CalculatePoints(order.Total)
	}
	if result := h.emails.SendOrderConfirmation(&order, pointsPreview); !result.Success && result.Error != "" {
		log.Printf("[Order] confirmation email for %s not sent: %s", order.ID, result.Error)
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

// resolveItems builds order lines, pulling name and price from the menu for
// catalog items and rejecting inactive or unknown references.
func (h *OrderHandler) resolveItems(reqs []orderItemRequest) (float64, []models.OrderItem, error) {
	var subtotal float64
	items := make([]models.OrderItem, 0, len(reqs))

	for _, r := range reqs {
		if r.Quantity <= 0 {
			return 0, nil, fiber.NewError(fiber.StatusBadRequest, "item quantity must be positive")
		}

		item := models.OrderItem{
			MenuItemID: r.MenuItemID,
			Name:       r.Name,
			UnitPrice:  r.UnitPrice,
			Quantity:   r.Quantity,
			Note:       r.Note,
		}

		if r.MenuItemID != nil {
			var menuItem models.MenuItem
			if err := h.db.First(&menuItem, "id = ? AND is_active = ?", *r.MenuItemID, true).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return 0, nil, fiber.NewError(fiber.StatusBadRequest, "menu item is not available")
				}
				return 0, nil, err
			}
			item.Name = menuItem.Name
			item.UnitPrice = menuItem.Price
		} else if item.Name == "" {
			return 0, nil, fiber.NewError(fiber.StatusBadRequest, "custom items require a name")
		}

		subtotal += item.LineTotal()
		items = append(items, item)
	}

	return subtotal, items, nil
}

// Get returns a single order with its items.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	order, err := h.orders.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// Receipt returns an itemized receipt for an order.
func (h *OrderHandler) Receipt(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	order, err := h.orders.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": services.BuildReceipt(order)})
}

// List returns orders with pagination and an optional status filter.
func (h *OrderHandler) List(c *fiber.Ctx) error {
	pagination := utils.ParsePagination(c)

	var status models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.ParseOrderStatus(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		status = parsed
	}

	orders, total, err := h.orders.List(status, pagination.Limit, pagination.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"total":   total,
		"page":    pagination.Page,
		"limit":   pagination.Limit,
	})
}

// ListMine returns the authenticated user's orders.
func (h *OrderHandler) ListMine(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	pagination := utils.ParsePagination(c)
	orders, total, err := h.orders.ListForUser(userID, pagination.Limit, pagination.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"total":   total,
		"page":    pagination.Page,
		"limit":   pagination.Limit,
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus transitions an order to a new state and reports any points
// side effects the transition triggered.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	order, outcome, err := h.orders.UpdateStatus(id, status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if result := h.emails.SendStatusUpdate(order, status, outcome); !result.Success && result.Error != "" {
		log.Printf("[Order] status email for %s not sent: %s", order.ID, result.Error)
	}

	response := fiber.Map{"success": true, "data": order}
	if outcome != nil {
		response["points"] = outcome
	}
	return c.JSON(response)
}

// SendReminder emails a pickup reminder for an order.
func (h *OrderHandler) SendReminder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	order, err := h.orders.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	result := h.emails.SendPickupReminder(order)
	status := fiber.StatusOK
	if !result.Success {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{"success": result.Success, "error": result.Error})
}

// Delete removes an order and its items.
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	deleted, err := h.orders.Delete(id)
	if err != nil {
		return err
	}
	if !deleted {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	}

	return c.JSON(fiber.Map{"success": true})
}
