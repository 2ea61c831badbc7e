package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/config"
	"github.com/example/lentil-life/internal/models"
	"github.com/example/lentil-life/internal/services"
	"github.com/example/lentil-life/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db       *gorm.DB
	cfg      *config.Config
	promos   *services.PromoService
	points   *services.PointsService
	location *services.LocationService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, promos *services.PromoService, points *services.PointsService, location *services.LocationService) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, promos: promos, points: points, location: location}
}

type registerRequest struct {
	Email            string   `json:"email"`
	Password         string   `json:"password"`
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Phone            string   `json:"phone"`
	MarketingConsent bool     `json:"marketing_consent"`
	PromoCode        string   `json:"promo_code"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
}

// Register creates a new user account, enriching the profile with geocoded
// location data and applying an optional promo code and signup bonus.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "user already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Email:            req.Email,
		PasswordHash:     passwordHash,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		MarketingConsent: req.MarketingConsent,
	}

	if req.Latitude != nil && req.Longitude != nil {
		loc := h.location.ReverseGeocode(*req.Latitude, *req.Longitude)
		user.Address = loc.Address
		user.City = loc.City
		user.State = loc.State
		user.Country = loc.Country
		user.PostalCode = loc.PostalCode
		user.Latitude = loc.Latitude
		user.Longitude = loc.Longitude
	}

	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	// Promo application and signup bonus are best-effort: registration
	// succeeds even when they fail.
	var promoApplied fiber.Map
	if req.PromoCode != "" {
		promo, err := h.promos.Validate(user.ID, req.PromoCode, true)
		if err != nil {
			log.Printf("[Auth] promo %q rejected at signup: %v", req.PromoCode, err)
		} else if err := h.promos.RecordUsage(user.ID, promo.ID, nil, 0); err != nil {
			log.Printf("[Auth] failed to record promo usage at signup: %v", err)
		} else {
			promoApplied = fiber.Map{"code": promo.Code, "valid": true}
		}
	}

	if _, err := h.points.SignupBonus(user.ID); err != nil {
		log.Printf("[Auth] failed to grant signup bonus to %s: %v", user.ID, err)
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
		},
		"promo_applied": promoApplied,
		"token":         token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
		},
		"token": token,
	})
}

type validatePromoRequest struct {
	PromoCode string `json:"promoCode"`
}

// ValidatePromoPublic checks a promo code without authentication, for use
// on the signup form. Each rejection reason gets its own message.
func (h *AuthHandler) ValidatePromoPublic(c *fiber.Ctx) error {
	var req validatePromoRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.PromoCode) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "promoCode is required")
	}

	promo, err := h.promos.ValidatePublic(req.PromoCode)
	if err != nil {
		if reason, ok := promoRejection(err); ok {
			return c.JSON(fiber.Map{"success": false, "valid": false, "error": reason})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"valid":   true,
		"promo": fiber.Map{
			"code":           promo.Code,
			"description":    promo.Description,
			"discount_type":  promo.DiscountType,
			"discount_value": promo.DiscountValue,
		},
	})
}

// promoRejection maps validation failures to client-facing messages. The
// bool is false for unexpected errors, which propagate as 500s.
func promoRejection(err error) (string, bool) {
	switch {
	case errors.Is(err, services.ErrInvalidCode):
		return "Invalid or expired promo code", true
	case errors.Is(err, services.ErrPromoExpired):
		return "Promo code has expired", true
	case errors.Is(err, services.ErrUsageLimitReached):
		return "Promo code usage limit reached", true
	case errors.Is(err, services.ErrNewUsersOnly):
		return "This promo code is only for new users", true
	case errors.Is(err, services.ErrPromoAlreadyUsed):
		return "You have already used this promo code", true
	case errors.Is(err, services.ErrLocationRestricted):
		return "This promo code is not available in your location", true
	default:
		return "", false
	}
}
