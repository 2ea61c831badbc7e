package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/models"
)

// DateFormat is the wire format for pickup dates.
const DateFormat = "2006-01-02"

// TimeSlotService computes bookable pickup windows from the weekly schedule
// and the capacity counter per slot per date.
type TimeSlotService struct {
	db *gorm.DB
}

// NewTimeSlotService constructs a TimeSlotService.
func NewTimeSlotService(db *gorm.DB) *TimeSlotService {
	return &TimeSlotService{db: db}
}

// Config returns the booking window configuration, falling back to defaults
// when no row exists.
func (s *TimeSlotService) Config() models.TimeSlotConfig {
	var cfg models.TimeSlotConfig
	if err := s.db.First(&cfg).Error; err != nil {
		return models.DefaultTimeSlotConfig()
	}
	return cfg
}

// UpdateConfig applies partial updates to the configuration row, creating
// it when missing.
func (s *TimeSlotService) UpdateConfig(updates map[string]interface{}) (models.TimeSlotConfig, error) {
	var cfg models.TimeSlotConfig
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cfg).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			cfg = models.DefaultTimeSlotConfig()
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

// AvailableDates walks the calendar from now + lead time for the configured
// advance-booking window and keeps dates whose weekday is allowed.
func (s *TimeSlotService) AvailableDates(now time.Time) []string {
	cfg := s.Config()
	start := now.AddDate(0, 0, cfg.LeadTimeDays)

	var dates []string
	for d := 0; d < cfg.MaxAdvanceBookingDays; d++ {
		day := start.AddDate(0, 0, d)
		if cfg.AvailableDays.Contains(day.Weekday().String()) {
			dates = append(dates, day.Format(DateFormat))
		}
	}
	return dates
}

// SlotAvailability is one pickup window with its remaining capacity on a
// specific date.
type SlotAvailability struct {
	ID                uuid.UUID `json:"id"`
	StartTime         string    `json:"start_time"`
	EndTime           string    `json:"end_time"`
	MaxOrders         int       `json:"max_orders"`
	BookedCount       int       `json:"booked_count"`
	CapacityRemaining int       `json:"capacity_remaining"`
	IsBookable        bool      `json:"is_bookable"`
}

// AvailableSlots returns every active recurring slot with its booked count
// for the given date.
func (s *TimeSlotService) AvailableSlots(date string) ([]SlotAvailability, error) {
	var slots []models.TimeSlot
	if err := s.db.Where("is_active = ?", true).Order("start_time asc").Find(&slots).Error; err != nil {
		return nil, err
	}

	availability := make([]SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		booked, err := CountBookedOrders(s.db, date, slot.Label())
		if err != nil {
			return nil, err
		}
		remaining := slot.MaxOrders - int(booked)
		if remaining < 0 {
			remaining = 0
		}
		availability = append(availability, SlotAvailability{
			ID:                slot.ID,
			StartTime:         slot.StartTime,
			EndTime:           slot.EndTime,
			MaxOrders:         slot.MaxOrders,
			BookedCount:       int(booked),
			CapacityRemaining: remaining,
			IsBookable:        int(booked) < slot.MaxOrders,
		})
	}
	return availability, nil
}

// CountBookedOrders counts non-cancelled orders holding the given date and
// slot label. It takes the db handle as a parameter so the order-create
// transaction can re-check capacity atomically.
func CountBookedOrders(tx *gorm.DB, date, slotLabel string) (int64, error) {
	var count int64
	err := tx.Model(&models.Order{}).
		Where("pickup_date = ? AND pickup_time = ? AND status <> ?", date, slotLabel, models.OrderStatusCancelled).
		Count(&count).Error
	return count, err
}

// FindSlotByLabel returns the active slot matching a window label, or nil
// when no slot is configured for it.
func (s *TimeSlotService) FindSlotByLabel(label string) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	err := s.db.Where("is_active = ?", true).First(&slot, "start_time || ' - ' || end_time = ?", label).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

// AddSlot creates a recurring slot.
func (s *TimeSlotService) AddSlot(startTime, endTime string, maxOrders int) (models.TimeSlot, error) {
	slot := models.TimeSlot{
		StartTime: startTime,
		EndTime:   endTime,
		MaxOrders: maxOrders,
		IsActive:  true,
	}
	err := s.db.Create(&slot).Error
	return slot, err
}

// UpdateSlot applies partial updates to a slot.
func (s *TimeSlotService) UpdateSlot(id uuid.UUID, updates map[string]interface{}) (models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := s.db.First(&slot, "id = ?", id).Error; err != nil {
		return slot, err
	}
	if err := s.db.Model(&slot).Updates(updates).Error; err != nil {
		return slot, err
	}
	err := s.db.First(&slot, "id = ?", id).Error
	return slot, err
}

// DeleteSlot removes a slot. Returns gorm.ErrRecordNotFound when absent.
func (s *TimeSlotService) DeleteSlot(id uuid.UUID) error {
	result := s.db.Delete(&models.TimeSlot{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
