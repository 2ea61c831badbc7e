package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/services"
)

// TimeSlotHandler serves pickup scheduling endpoints.
type TimeSlotHandler struct {
	slots *services.TimeSlotService
}

// NewTimeSlotHandler constructs a TimeSlotHandler.
func NewTimeSlotHandler(slots *services.TimeSlotService) *TimeSlotHandler {
	return &TimeSlotHandler{slots: slots}
}

// AvailableDates returns bookable pickup dates within the configured window.
func (h *TimeSlotHandler) AvailableDates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.slots.AvailableDates(time.Now()),
	})
}

// AvailableSlots returns slots for a given date with remaining capacity.
func (h *TimeSlotHandler) AvailableSlots(c *fiber.Ctx) error {
	date := c.Query("date")
	if date == "" {
		return fiber.NewError(fiber.StatusBadRequest, "date query parameter is required")
	}
	if _, err := time.Parse(services.DateFormat, date); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
	}

	slots, err := h.slots.AvailableSlots(date)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "date": date, "data": slots})
}

// Config returns the scheduling configuration.
func (h *TimeSlotHandler) Config(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": h.slots.Config()})
}

// UpdateConfig changes the scheduling configuration.
func (h *TimeSlotHandler) UpdateConfig(c *fiber.Ctx) error {
	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	cfg, err := h.slots.UpdateConfig(updates)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": cfg})
}

type addSlotRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	MaxOrders int    `json:"max_orders"`
}

// AddSlot creates a new pickup time slot.
func (h *TimeSlotHandler) AddSlot(c *fiber.Ctx) error {
	var req addSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.StartTime == "" || req.EndTime == "" {
		return fiber.NewError(fiber.StatusBadRequest, "start_time and end_time are required")
	}
	if req.MaxOrders <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "max_orders must be positive")
	}

	slot, err := h.slots.AddSlot(req.StartTime, req.EndTime, req.MaxOrders)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": slot})
}

// UpdateSlot modifies an existing slot.
func (h *TimeSlotHandler) UpdateSlot(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid slot id")
	}

	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	slot, err := h.slots.UpdateSlot(id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "slot not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": slot})
}

// DeleteSlot removes a slot.
func (h *TimeSlotHandler) DeleteSlot(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid slot id")
	}

	if err := h.slots.DeleteSlot(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "slot not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}
