package models

// TimeSlotConfig controls which pickup dates are bookable. A single row is
// expected; the service falls back to defaults when none exists.
type TimeSlotConfig struct {
	BaseModel
	AvailableDays         StringList `gorm:"type:jsonb" json:"available_days"`
	LeadTimeDays          int        `json:"lead_time_days"`
	MaxAdvanceBookingDays int        `json:"max_advance_booking_days"`
}

// DefaultTimeSlotConfig matches the storefront's original weekday schedule.
func DefaultTimeSlotConfig() TimeSlotConfig {
	return TimeSlotConfig{
		AvailableDays:         StringList{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		LeadTimeDays:          1,
		MaxAdvanceBookingDays: 14,
	}
}

// TimeSlot is a recurring daily pickup window with a per-date capacity cap.
type TimeSlot struct {
	BaseModel
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	MaxOrders int    `json:"max_orders"`
	IsActive  bool   `gorm:"index" json:"is_active"`
}

// Label is the window string stored on orders ("11:00 - 11:30").
func (s TimeSlot) Label() string {
	return s.StartTime + " - " + s.EndTime
}
