package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/lentil-life/internal/middleware"
	"github.com/example/lentil-life/internal/services"
)

// PointsHandler serves loyalty points endpoints.
type PointsHandler struct {
	points *services.PointsService
}

// NewPointsHandler constructs a PointsHandler.
func NewPointsHandler(points *services.PointsService) *PointsHandler {
	return &PointsHandler{points: points}
}

// Balance returns the current user's points balance.
func (h *PointsHandler) Balance(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	account, err := h.points.Balance(userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"balance":         account.Balance,
		"lifetime_earned": account.LifetimeEarned,
	})
}

// History returns the current user's points ledger, newest first.
func (h *PointsHandler) History(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	transactions, err := h.points.History(userID, limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": transactions})
}

// Calculate previews how many points an order amount would earn.
func (h *PointsHandler) Calculate(c *fiber.Ctx) error {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "amount must be a non-negative number")
	}

	cfg := h.points.Config()
	return c.JSON(fiber.Map{
		"success":     true,
		"amount":      amount,
		"points":      h.points.CalculatePoints(amount),
		"points_rate": cfg.PointsPerDollar,
		"min_order":   cfg.MinOrderForPoints,
		"is_active":   cfg.IsActive,
	})
}

// UserBalance returns the balance for the user named in the path. Users may
// only read their own account.
func (h *PointsHandler) UserBalance(c *fiber.Ctx) error {
	userID, err := h.authorizedUserParam(c)
	if err != nil {
		return err
	}

	account, err := h.points.Balance(userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"balance":         account.Balance,
		"lifetime_earned": account.LifetimeEarned,
	})
}

// UserHistory returns the ledger for the user named in the path.
func (h *PointsHandler) UserHistory(c *fiber.Ctx) error {
	userID, err := h.authorizedUserParam(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	transactions, err := h.points.History(userID, limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": transactions})
}

func (h *PointsHandler) authorizedUserParam(c *fiber.Ctx) (uuid.UUID, error) {
	currentID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	if userID != currentID {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "cannot access another user's points")
	}
	return userID, nil
}

type spendPointsRequest struct {
	Points      int        `json:"points"`
	OrderID     *uuid.UUID `json:"order_id"`
	Description string     `json:"description"`
}

// Spend deducts points from the current user's balance.
func (h *PointsHandler) Spend(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	var req spendPointsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Points <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "points must be positive")
	}

	result, err := h.points.Spend(userID, req.Points, req.OrderID, req.Description)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientBalance) {
			return fiber.NewError(fiber.StatusBadRequest, "insufficient points balance")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

type awardPointsRequest struct {
	UserID      uuid.UUID `json:"user_id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderAmount float64   `json:"order_amount"`
}

// Award grants points for a completed order. Safe to retry: a duplicate
// award is reported, not double-credited.
func (h *PointsHandler) Award(c *fiber.Ctx) error {
	var req awardPointsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.UserID == uuid.Nil || req.OrderID == uuid.Nil {
		return fiber.NewError(fiber.StatusBadRequest, "user_id and order_id are required")
	}

	result, err := h.points.Award(req.UserID, req.OrderID, req.OrderAmount)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyAwarded) {
			return c.JSON(fiber.Map{"success": true, "already_awarded": true})
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

type refundPointsRequest struct {
	UserID  uuid.UUID `json:"user_id"`
	OrderID uuid.UUID `json:"order_id"`
}

// Refund reverses the points earned for an order.
func (h *PointsHandler) Refund(c *fiber.Ctx) error {
	var req refundPointsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.UserID == uuid.Nil || req.OrderID == uuid.Nil {
		return fiber.NewError(fiber.StatusBadRequest, "user_id and order_id are required")
	}

	result, err := h.points.Refund(req.UserID, req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyRefunded):
			return c.JSON(fiber.Map{"success": true, "already_refunded": true})
		case errors.Is(err, services.ErrNoPointsForOrder):
			return fiber.NewError(fiber.StatusNotFound, "no points were earned for this order")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

// Config returns the active points program configuration.
func (h *PointsHandler) Config(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": h.points.Config()})
}

// UpdateConfig changes the points program configuration.
func (h *PointsHandler) UpdateConfig(c *fiber.Ctx) error {
	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	cfg, err := h.points.UpdateConfig(updates)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cfg})
}
