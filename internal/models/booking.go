package models

import "time"

type Booking struct {
	ID               int64     `json:"id"`
	StaffID          int64     `json:"staff_id"`
	ServiceID        int64     `json:"service_id"`
	SlotStart        time.Time `json:"slot_start"`
	SlotEnd          time.Time `json:"slot_end"`
	CustomerName     string    `json:"customer_name"`
	CustomerPhone    string    `json:"customer_phone"`
	CustomerEmail    string    `json:"customer_email"`
	MarketingConsent bool      `json:"marketing_consent"`
	FinalPrice       int64     `json:"final_price"`
	Status           string    `json:"status"` // confirmed, cancelled, no_show
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Blocks reports whether the booking still occupies its interval on the calendar.
func (b *Booking) Blocks() bool {
	return b.Status == StatusConfirmed
}
