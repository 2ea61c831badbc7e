package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/middleware"
	"github.com/example/lentil-life/internal/models"
	"github.com/example/lentil-life/internal/services"
)

// ProfileHandler serves the authenticated user's profile.
type ProfileHandler struct {
	db     *gorm.DB
	points *services.PointsService
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB, points *services.PointsService) *ProfileHandler {
	return &ProfileHandler{db: db, points: points}
}

// Me returns the current user's profile with their points balance.
func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	account, err := h.points.Balance(userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
		"points": fiber.Map{
			"balance":         account.Balance,
			"lifetime_earned": account.LifetimeEarned,
		},
	})
}

type updateProfileRequest struct {
	FirstName        *string `json:"first_name"`
	LastName         *string `json:"last_name"`
	Phone            *string `json:"phone"`
	MarketingConsent *bool   `json:"marketing_consent"`
}

// Update applies partial changes to the current user's profile.
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.MarketingConsent != nil {
		user.MarketingConsent = *req.MarketingConsent
	}

	if err := h.db.Save(&user).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "user": user})
}
