package api

import (
	"strings"
	"time"

	"salonbook/internal/models"
	"salonbook/internal/tz"
)

type createHoldRequest struct {
	SessionID    string `json:"sessionId" validate:"required,max=128"`
	StaffID      int64  `json:"staffId" validate:"required,gt=0"`
	ServiceID    int64  `json:"serviceId" validate:"required,gt=0"`
	SlotDateTime string `json:"slotDateTime" validate:"required"`
}

type convertHoldRequest struct {
	CustomerName     string `json:"customerName"`
	CustomerPhone    string `json:"customerPhone"`
	CustomerEmail    string `json:"customerEmail"`
	MarketingConsent bool   `json:"marketingConsent"`
}

type availabilityQuery struct {
	StaffID   int64  `validate:"required,gt=0"`
	ServiceID int64  `validate:"required,gt=0"`
	Date      string `validate:"required,datetime=2006-01-02"`
}

type remainingTime struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

type holdResponse struct {
	ID               string        `json:"id"`
	SessionID        string        `json:"sessionId"`
	StaffID          int64         `json:"staffId"`
	ServiceID        int64         `json:"serviceId"`
	SlotDateTime     string        `json:"slotDateTime"`
	ExpiresAt        string        `json:"expiresAt"`
	RemainingSeconds int           `json:"remainingSeconds"`
	RemainingTime    remainingTime `json:"remainingTime"`
}

type sessionHoldResponse struct {
	HasActiveHold bool          `json:"hasActiveHold"`
	Hold          *holdResponse `json:"hold,omitempty"`
	Expired       bool          `json:"expired,omitempty"`
	Message       string        `json:"message,omitempty"`
}

type bookingResponse struct {
	ID           int64  `json:"id"`
	StaffID      int64  `json:"staffId"`
	ServiceID    int64  `json:"serviceId"`
	SlotDateTime string `json:"slotDateTime"`
	EndDateTime  string `json:"endDateTime"`
	PSTTime      string `json:"pstTime"`
	Status       string `json:"status"`
	FinalPrice   int64  `json:"finalPrice"`
	CreatedAt    string `json:"createdAt"`
}

type customerResponse struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Email            string `json:"email,omitempty"`
	MarketingConsent bool   `json:"marketingConsent"`
}

type slotResponse struct {
	DateTime  string `json:"datetime"`
	Available bool   `json:"available"`
	PSTTime   string `json:"pstTime"`
	Reason    string `json:"reason,omitempty"`
}

type availabilityResponse struct {
	Slots       []slotResponse `json:"slots"`
	TotalSlots  int            `json:"totalSlots"`
	StaffName   string         `json:"staffName"`
	ServiceName string         `json:"serviceName"`
	Date        string         `json:"date"`
	Message     string         `json:"message,omitempty"`
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toHoldResponse(h *models.Hold, now time.Time) *holdResponse {
	minutes, seconds := h.Remaining(now)
	return &holdResponse{
		ID:               h.ID,
		SessionID:        h.SessionID,
		StaffID:          h.StaffID,
		ServiceID:        h.ServiceID,
		SlotDateTime:     formatInstant(h.SlotStart),
		ExpiresAt:        formatInstant(h.ExpiresAt),
		RemainingSeconds: h.RemainingSeconds(now),
		RemainingTime:    remainingTime{Minutes: minutes, Seconds: seconds},
	}
}

func toBookingResponse(b *models.Booking, n *tz.Normalizer) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		StaffID:      b.StaffID,
		ServiceID:    b.ServiceID,
		SlotDateTime: formatInstant(b.SlotStart),
		EndDateTime:  formatInstant(b.SlotEnd),
		PSTTime:      n.Display(b.SlotStart),
		Status:       b.Status,
		FinalPrice:   b.FinalPrice,
		CreatedAt:    formatInstant(b.CreatedAt),
	}
}

// parseSlotDateTime accepts an ISO-8601 instant with an offset, or a bare
// local wall-clock reading which is resolved in the business time zone.
func parseSlotDateTime(raw string, n *tz.Normalizer) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}

	date, clock, ok := strings.Cut(raw, "T")
	if !ok {
		date, clock, ok = strings.Cut(raw, " ")
	}
	if !ok {
		return time.Time{}, tz.ErrInvalidLocalTime
	}
	return n.ToInstant(date, clock)
}
