package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/models"
)

// MenuHandler serves the menu catalog.
type MenuHandler struct {
	db *gorm.DB
}

// NewMenuHandler constructs a MenuHandler.
func NewMenuHandler(db *gorm.DB) *MenuHandler {
	return &MenuHandler{db: db}
}

// List returns active menu items, optionally filtered by category or the
// featured flag.
func (h *MenuHandler) List(c *fiber.Ctx) error {
	query := h.db.Model(&models.MenuItem{}).Where("is_active = ?", true)

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if c.Query("featured") == "true" {
		query = query.Where("is_featured = ?", true)
	}

	var items []models.MenuItem
	if err := query.Order("category, name").Find(&items).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": items})
}

// Featured returns active items flagged as featured.
func (h *MenuHandler) Featured(c *fiber.Ctx) error {
	var items []models.MenuItem
	err := h.db.Where("is_active = ? AND is_featured = ?", true, true).
		Order("name").Find(&items).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": items})
}

// ByCategory returns active items in one category.
func (h *MenuHandler) ByCategory(c *fiber.Ctx) error {
	category := c.Params("category")

	var items []models.MenuItem
	err := h.db.Where("is_active = ? AND category = ?", true, category).
		Order("name").Find(&items).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": items})
}

// Get returns a single menu item by ID.
func (h *MenuHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid menu item id")
	}

	var item models.MenuItem
	if err := h.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "menu item not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": item})
}

// Create adds a menu item.
func (h *MenuHandler) Create(c *fiber.Ctx) error {
	var item models.MenuItem
	if err := c.BodyParser(&item); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if item.Name == "" || item.Price < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "name is required and price must be non-negative")
	}

	if err := h.db.Create(&item).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

// Update modifies a menu item.
func (h *MenuHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid menu item id")
	}

	var item models.MenuItem
	if err := h.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "menu item not found")
		}
		return err
	}

	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	delete(updates, "id")
	delete(updates, "created_at")
	delete(updates, "updated_at")

	if err := h.db.Model(&item).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": item})
}

// Delete removes a menu item.
func (h *MenuHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid menu item id")
	}

	result := h.db.Delete(&models.MenuItem{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "menu item not found")
	}

	return c.JSON(fiber.Map{"success": true})
}
