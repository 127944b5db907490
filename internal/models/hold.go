package models

import "time"

// Hold is a short exclusive reservation of a staff member's slot for one client session.
type Hold struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	StaffID   int64     `json:"staff_id"`
	ServiceID int64     `json:"service_id"`
	SlotStart time.Time `json:"slot_start"`
	SlotEnd   time.Time `json:"slot_end"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsActive reports whether the hold still protects its slot at now.
// A hold is expired from the instant ExpiresAt is reached.
func (h *Hold) IsActive(now time.Time) bool {
	return now.Before(h.ExpiresAt)
}

// RemainingSeconds rounds up so a hold with any time left never reports zero.
func (h *Hold) RemainingSeconds(now time.Time) int {
	left := h.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	secs := left / time.Second
	if left%time.Second != 0 {
		secs++
	}
	return int(secs)
}

func (h *Hold) Remaining(now time.Time) (minutes, seconds int) {
	total := h.RemainingSeconds(now)
	return total / 60, total % 60
}
