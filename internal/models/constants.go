package models

import "time"

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

const (
	// HoldTTL время жизни удержания слота
	HoldTTL = 5 * time.Minute

	// SlotInterval шаг сетки слотов
	SlotInterval = 15 * time.Minute

	// BusinessTimezone часовой пояс салона
	BusinessTimezone = "America/Los_Angeles"

	// DateLayout формат даты в запросах
	DateLayout = "2006-01-02"

	// ClockLayout формат времени суток в расписании
	ClockLayout = "15:04"
)

// Reasons reported for unavailable slots.
const (
	ReasonBooked  = "booked"
	ReasonHeld    = "held"
	ReasonClosing = "closing"
)
